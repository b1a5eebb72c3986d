// Package format renders CLI payloads as JSON or EDN.
package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/bytedance/sonic"
)

const (
	JSON = "json"
	EDN  = "edn"
)

// Envelope is the top-level shape of every command's output.
type Envelope struct {
	Data  any            `json:"data"`
	Meta  map[string]any `json:"meta,omitempty"`
	Hints []string       `json:"_hints,omitempty"`
}

// Write writes v in the requested format (json by default).
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", JSON:
		return WriteJSON(w, v, pretty)
	case EDN:
		return WriteEDN(w, v, pretty)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteJSON writes strict JSON followed by a newline.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var (
		b   []byte
		err error
	)
	if pretty {
		b, err = sonic.ConfigStd.MarshalIndent(v, "", "  ")
	} else {
		b, err = sonic.ConfigStd.Marshal(v)
	}
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}
