package main

import (
	"reflect"
	"testing"
)

func TestRewriteDirectTaskLookupArgs(t *testing.T) {
	t.Parallel()

	const id = "0b7c6c2e-6f1e-4a8e-9a4f-3f1c2d9e8b10"

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"taskboard"},
			want: []string{"taskboard"},
		},
		{
			name: "task id first token",
			in:   []string{"taskboard", id},
			want: []string{"taskboard", "tasks", "show", id},
		},
		{
			name: "task id after value flag",
			in:   []string{"taskboard", "--api-url", "http://localhost:9090", id},
			want: []string{"taskboard", "--api-url", "http://localhost:9090", "tasks", "show", id},
		},
		{
			name: "task id after equals flag",
			in:   []string{"taskboard", "--format=edn", id},
			want: []string{"taskboard", "--format=edn", "tasks", "show", id},
		},
		{
			name: "task id after bool flag",
			in:   []string{"taskboard", "--pretty", id},
			want: []string{"taskboard", "--pretty", "tasks", "show", id},
		},
		{
			name: "task id after double dash",
			in:   []string{"taskboard", "--dir", "./tmp", "--", id},
			want: []string{"taskboard", "--dir", "./tmp", "--", "tasks", "show", id},
		},
		{
			name: "subcommand not rewritten",
			in:   []string{"taskboard", "tasks", "move", id, "done"},
			want: []string{"taskboard", "tasks", "move", id, "done"},
		},
		{
			name: "token value not mistaken for id",
			in:   []string{"taskboard", "--token", id},
			want: []string{"taskboard", "--token", id},
		},
		{
			name: "unknown command not rewritten",
			in:   []string{"taskboard", "wat"},
			want: []string{"taskboard", "wat"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteDirectTaskLookupArgs(append([]string(nil), tt.in...))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewrite(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
