package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/model"
)

func TestStore_ReplaceBumpsGenerationAndNotifies(t *testing.T) {
	s := NewStore()
	var events []ReplaceEvent
	s.Subscribe(func(ev ReplaceEvent) { events = append(events, ev) })

	assert.Equal(t, uint64(0), s.Generation())
	s.Replace(seedTasks())
	s.ReplaceFetched(0, seedTasks()[:1])

	require.Len(t, events, 2)
	assert.Equal(t, ReplaceEvent{Generation: 1, Since: 0}, events[0])
	assert.Equal(t, ReplaceEvent{Generation: 2, Since: 0}, events[1])
	assert.Equal(t, 1, s.Snapshot().Len())
}

func TestStore_ReplaceFetchedClampsFutureSince(t *testing.T) {
	s := NewStore()
	var got ReplaceEvent
	s.Subscribe(func(ev ReplaceEvent) { got = ev })
	s.ReplaceFetched(99, nil)
	assert.Equal(t, uint64(0), got.Since)
}

func TestStore_MergeIsCopyOnWrite(t *testing.T) {
	s := NewStore()
	s.Replace(seedTasks())
	before := s.Snapshot()

	gen := s.Merge(model.Task{ID: "T1", Title: "Write docs", Bucket: model.BucketDone})
	assert.Equal(t, uint64(2), gen)

	old, _ := before.Get("T1")
	assert.Equal(t, model.BucketTodo, old.Bucket)
	cur, _ := s.Get("T1")
	assert.Equal(t, model.BucketDone, cur.Bucket)

	assert.Equal(t, gen, s.Merge(model.Task{ID: ""}))
}

func TestStore_ReplaceCopiesDueDates(t *testing.T) {
	tasks := seedTasks()
	due := tasks[0].CreatedAt.AddDate(0, 0, 3)
	tasks[0].DueDate = &due

	s := NewStore()
	s.Replace(tasks)
	*tasks[0].DueDate = due.AddDate(1, 0, 0)

	got, _ := s.Get("T1")
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(due))
}

func TestStore_GetReturnsIndependentCopies(t *testing.T) {
	tasks := seedTasks()
	due := tasks[0].CreatedAt.AddDate(0, 0, 3)
	tasks[0].DueDate = &due

	s := NewStore()
	s.Replace(tasks)

	got, ok := s.Get("T1")
	require.True(t, ok)
	*got.DueDate = due.AddDate(1, 0, 0)
	*s.Snapshot().Tasks()[0].DueDate = due.AddDate(2, 0, 0)
	*s.Snapshot().InBucket(model.BucketTodo)[0].DueDate = due.AddDate(3, 0, 0)

	again, _ := s.Get("T1")
	require.NotNil(t, again.DueDate)
	assert.True(t, again.DueDate.Equal(due))
}

func TestCollection_IdsAreOpaque(t *testing.T) {
	c := NewCollection([]model.Task{
		{ID: "a", Title: "plain", Bucket: model.BucketTodo},
		{ID: " a", Title: "padded", Bucket: model.BucketDone},
		{ID: "", Title: "no id", Bucket: model.BucketTodo},
	})

	assert.Equal(t, 2, c.Len())
	plain, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "plain", plain.Title)
	padded, ok := c.Get(" a")
	require.True(t, ok)
	assert.Equal(t, "padded", padded.Title)
	assert.False(t, c.Has("a "))
}
