package board

import (
	"sort"

	"taskboard/internal/model"
)

// Collection is an immutable id -> task mapping. The zero value is empty.
//
// Collections are never modified after construction, so they can be shared
// between the store, the overlay view and the UI without copying.
type Collection struct {
	byID  map[string]model.Task
	order []string
}

func newCollection(tasks []model.Task) Collection {
	c := Collection{
		byID:  make(map[string]model.Task, len(tasks)),
		order: make([]string, 0, len(tasks)),
	}
	for _, t := range tasks {
		if t.ID == "" {
			continue
		}
		if _, dup := c.byID[t.ID]; !dup {
			c.order = append(c.order, t.ID)
		}
		c.byID[t.ID] = t.Clone()
	}
	return c
}

// NewCollection builds a collection from tasks. Ids are opaque and compared
// verbatim. Later duplicates of an id win but keep the position of the first
// occurrence; tasks without an id are skipped.
func NewCollection(tasks []model.Task) Collection {
	return newCollection(tasks)
}

func (c Collection) Len() int { return len(c.order) }

// Get returns a copy of the task; changing it does not affect the collection.
func (c Collection) Get(id string) (model.Task, bool) {
	t, ok := c.byID[id]
	if !ok {
		return model.Task{}, false
	}
	return t.Clone(), true
}

func (c Collection) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Tasks returns every task in insertion order.
func (c Collection) Tasks() []model.Task {
	out := make([]model.Task, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id].Clone())
	}
	return out
}

// InBucket returns the tasks in b, in insertion order.
func (c Collection) InBucket(b model.Bucket) []model.Task {
	var out []model.Task
	for _, id := range c.order {
		if t := c.byID[id]; t.Bucket == b {
			out = append(out, t.Clone())
		}
	}
	return out
}

// IDs returns the ids sorted lexically (useful for diffs and tests).
func (c Collection) IDs() []string {
	out := append([]string(nil), c.order...)
	sort.Strings(out)
	return out
}

// Equal reports whether both collections hold the same tasks, ignoring order.
func (c Collection) Equal(o Collection) bool {
	if len(c.byID) != len(o.byID) {
		return false
	}
	for id, t := range c.byID {
		u, ok := o.byID[id]
		if !ok || !sameTask(t, u) {
			return false
		}
	}
	return true
}

func sameTask(a, b model.Task) bool {
	if (a.DueDate == nil) != (b.DueDate == nil) {
		return false
	}
	if a.DueDate != nil && !a.DueDate.Equal(*b.DueDate) {
		return false
	}
	a.DueDate, b.DueDate = nil, nil
	return a.ID == b.ID &&
		a.Title == b.Title &&
		a.Description == b.Description &&
		a.Bucket == b.Bucket &&
		a.Priority == b.Priority &&
		a.AssigneeID == b.AssigneeID &&
		a.Assignee == b.Assignee &&
		a.ProjectID == b.ProjectID &&
		a.ProjectName == b.ProjectName &&
		a.Comments == b.Comments &&
		a.CreatedAt.Equal(b.CreatedAt) &&
		a.UpdatedAt.Equal(b.UpdatedAt)
}

// with returns a copy of c with t inserted or replaced.
func (c Collection) with(t model.Task) Collection {
	out := Collection{
		byID:  make(map[string]model.Task, len(c.byID)+1),
		order: append([]string(nil), c.order...),
	}
	for id, v := range c.byID {
		out.byID[id] = v
	}
	if _, ok := out.byID[t.ID]; !ok {
		out.order = append(out.order, t.ID)
	}
	out.byID[t.ID] = t.Clone()
	return out
}

// ReplaceEvent describes a wholesale store replacement.
type ReplaceEvent struct {
	// Generation is the store generation after the replacement.
	Generation uint64
	// Since is the generation observed when the fetch that produced the data began.
	Since uint64
}

// Store holds the last confirmed server state. It is only changed by Replace
// (fresh fetch) and Merge (a confirmed single-task update), and each change bumps
// the generation counter.
//
// Store is not safe for concurrent use; it belongs to the UI event loop.
type Store struct {
	current   Collection
	gen       uint64
	listeners []func(ReplaceEvent)
}

func NewStore() *Store {
	return &Store{current: newCollection(nil)}
}

// Generation returns the current generation. Capture it before starting a fetch
// and hand it back to ReplaceFetched.
func (s *Store) Generation() uint64 { return s.gen }

func (s *Store) Get(id string) (model.Task, bool) { return s.current.Get(id) }

// Snapshot returns the current collection.
func (s *Store) Snapshot() Collection { return s.current }

// Replace swaps in a freshly fetched collection, assuming the fetch started at the
// current generation.
func (s *Store) Replace(tasks []model.Task) uint64 {
	return s.ReplaceFetched(s.gen, tasks)
}

// ReplaceFetched swaps in a collection whose fetch began at generation since.
// Subscribers are notified after the swap.
func (s *Store) ReplaceFetched(since uint64, tasks []model.Task) uint64 {
	if since > s.gen {
		since = s.gen
	}
	s.current = newCollection(tasks)
	s.gen++
	ev := ReplaceEvent{Generation: s.gen, Since: since}
	for _, fn := range s.listeners {
		fn(ev)
	}
	return s.gen
}

// Merge writes a single confirmed task. It is data-equivalent to a Replace with
// that one task swapped, including the generation bump, but does not notify
// subscribers.
func (s *Store) Merge(t model.Task) uint64 {
	if t.ID == "" {
		return s.gen
	}
	s.current = s.current.with(t)
	s.gen++
	return s.gen
}

// Advance bumps the generation without changing data. The controller calls it
// when it rolls a move back locally, so that fetches started before and after the
// rollback can be told apart.
func (s *Store) Advance() uint64 {
	s.gen++
	return s.gen
}

// Subscribe registers fn to run after every Replace.
func (s *Store) Subscribe(fn func(ReplaceEvent)) {
	if fn != nil {
		s.listeners = append(s.listeners, fn)
	}
}
