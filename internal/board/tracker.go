package board

import "sort"

// Tracker is the set of task ids with a mutation in flight. It drives the
// "updating" indicator on cards.
type Tracker struct {
	ids map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{ids: map[string]struct{}{}}
}

// Begin marks id as in flight. A second Begin without an End in between is
// rejected with AlreadyTrackedError.
func (t *Tracker) Begin(id string) error {
	if _, ok := t.ids[id]; ok {
		return AlreadyTrackedError{ID: id}
	}
	t.ids[id] = struct{}{}
	return nil
}

// End clears id. It reports whether id was being tracked.
func (t *Tracker) End(id string) bool {
	if _, ok := t.ids[id]; !ok {
		return false
	}
	delete(t.ids, id)
	return true
}

func (t *Tracker) IsPending(id string) bool {
	_, ok := t.ids[id]
	return ok
}

// PendingIDs returns the tracked ids, sorted.
func (t *Tracker) PendingIDs() []string {
	out := make([]string, 0, len(t.ids))
	for id := range t.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (t *Tracker) Len() int { return len(t.ids) }
