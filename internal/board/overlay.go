package board

import (
	"sort"
	"time"

	"taskboard/internal/model"
)

// Outcome is the resolution state of a mutation.
type Outcome int

const (
	OutcomeInFlight Outcome = iota
	OutcomeSucceeded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInFlight:
		return "in-flight"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PendingMutation is one optimistic bucket change.
//
// While in flight it displays TargetBucket. Once resolved it displays Settled
// (the canonical bucket on success, PreviousBucket on failure) until a fetch that
// started after the resolution replaces the store.
type PendingMutation struct {
	TaskID         string
	PreviousBucket model.Bucket
	TargetBucket   model.Bucket
	RequestedAt    time.Time

	// Seq orders mutations across the whole board; the highest wins per task.
	Seq uint64
	// Generation is the store generation when the mutation was recorded.
	Generation uint64

	Outcome            Outcome
	Settled            model.Bucket
	ResolvedGeneration uint64
}

func (m PendingMutation) Resolved() bool { return m.Outcome != OutcomeInFlight }

// DisplayBucket is the bucket the overlay shows for this mutation.
func (m PendingMutation) DisplayBucket() model.Bucket {
	if m.Resolved() {
		return m.Settled
	}
	return m.TargetBucket
}

// expired reports whether a replacement whose fetch began at since has caught up
// with this mutation's resolution.
func (m PendingMutation) expired(since uint64) bool {
	return m.Resolved() && since >= m.ResolvedGeneration
}

// View derives the display collection: server state with each mutation's display
// bucket applied. Mutations for tasks missing from server are ignored; when two
// mutations target the same task the higher Seq wins. Neither input is modified.
func View(server Collection, pending []PendingMutation) Collection {
	if len(pending) == 0 {
		return server
	}

	ordered := append([]PendingMutation(nil), pending...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	byID := make(map[string]model.Task, len(server.byID))
	for id, t := range server.byID {
		byID[id] = t
	}
	for _, m := range ordered {
		id := m.TaskID
		t, ok := byID[id]
		if !ok {
			continue
		}
		b := m.DisplayBucket()
		if !b.Valid() {
			continue
		}
		byID[id] = t.WithBucket(b)
	}
	return Collection{byID: byID, order: server.order}
}

// Overlay is the set of mutations layered over the store, at most one per task.
type Overlay struct {
	byID map[string]PendingMutation
}

func NewOverlay() *Overlay {
	return &Overlay{byID: map[string]PendingMutation{}}
}

func (o *Overlay) Get(id string) (PendingMutation, bool) {
	m, ok := o.byID[id]
	return m, ok
}

// Put records m, replacing any mutation already held for the same task.
func (o *Overlay) Put(m PendingMutation) {
	o.byID[m.TaskID] = m
}

func (o *Overlay) Delete(id string) {
	delete(o.byID, id)
}

func (o *Overlay) Len() int { return len(o.byID) }

// Active reports whether anything is layered over the store.
func (o *Overlay) Active() bool { return len(o.byID) > 0 }

// Mutations returns the held mutations ordered by Seq.
func (o *Overlay) Mutations() []PendingMutation {
	out := make([]PendingMutation, 0, len(o.byID))
	for _, m := range o.byID {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// View applies the overlay to server.
func (o *Overlay) View(server Collection) Collection {
	return View(server, o.Mutations())
}

// Prune reconciles the overlay with a replaced store. Mutations whose task is
// gone from server are removed and returned in vanished; resolved mutations the
// replacement has caught up with (fetch began at or after their resolution) are
// removed silently.
func (o *Overlay) Prune(server Collection, since uint64) (vanished []PendingMutation) {
	for id, m := range o.byID {
		if !server.Has(id) {
			vanished = append(vanished, m)
			delete(o.byID, id)
			continue
		}
		if m.expired(since) {
			delete(o.byID, id)
		}
	}
	sort.Slice(vanished, func(i, j int) bool { return vanished[i].Seq < vanished[j].Seq })
	return vanished
}
