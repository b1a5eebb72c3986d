package board

import (
	"github.com/sirupsen/logrus"

	"taskboard/internal/model"
)

type TargetKind int

const (
	TargetNone TargetKind = iota
	// TargetBucket is a column container; ID is the bucket.
	TargetBucket
	// TargetTask is a card inside a column; ID is the task id.
	TargetTask
)

// Target is whatever the pointer is over during a drag.
type Target struct {
	Kind TargetKind
	ID   string
}

func NoTarget() Target                  { return Target{} }
func BucketTarget(b model.Bucket) Target { return Target{Kind: TargetBucket, ID: string(b)} }
func TaskTarget(id string) Target       { return Target{Kind: TargetTask, ID: id} }

// Mover is the part of Controller the drag adapter needs.
type Mover interface {
	Move(id string, target model.Bucket) (*Request, error)
	Bucket(id string) (model.Bucket, bool)
}

// DragAdapter turns drag lifecycle events into a single Move per gesture.
type DragAdapter struct {
	mover Mover
	log   logrus.FieldLogger

	active string
	over   Target
}

func NewDragAdapter(m Mover, log logrus.FieldLogger) *DragAdapter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &DragAdapter{mover: m, log: log}
}

// Resolve maps a target to a bucket: a column maps to itself, a card to its
// displayed bucket. Anything else does not resolve.
func (d *DragAdapter) Resolve(t Target) (model.Bucket, bool) {
	id := t.ID
	switch t.Kind {
	case TargetBucket:
		b := model.Bucket(id)
		return b, b.Valid()
	case TargetTask:
		if id == "" {
			return "", false
		}
		return d.mover.Bucket(id)
	default:
		return "", false
	}
}

// DragStart begins a gesture on id. It reports false (and starts nothing) when
// id is not on the board.
func (d *DragAdapter) DragStart(id string) bool {
	if _, ok := d.mover.Bucket(id); !ok {
		d.log.WithField("task", id).Debug("drag start ignored: unknown task")
		d.reset()
		return false
	}
	d.active = id
	d.over = NoTarget()
	return true
}

// DragOver records the hovered target and returns the bucket it resolves to,
// for highlighting.
func (d *DragAdapter) DragOver(t Target) (model.Bucket, bool) {
	if d.active == "" {
		return "", false
	}
	d.over = t
	return d.Resolve(t)
}

// DragEnd completes the gesture. When the target resolves to a bucket, Move is
// called exactly once; otherwise the drop is treated as cancelled.
func (d *DragAdapter) DragEnd(id string, t Target) (*Request, error) {
	if id == "" {
		id = d.active
	}
	d.reset()
	if id == "" {
		return nil, nil
	}
	b, ok := d.Resolve(t)
	if !ok {
		d.log.WithField("task", id).Debug("drop outside any target; cancelled")
		return nil, nil
	}
	return d.mover.Move(id, b)
}

// Cancel abandons the gesture without moving anything.
func (d *DragAdapter) Cancel() { d.reset() }

// Active returns the task being dragged.
func (d *DragAdapter) Active() (string, bool) {
	return d.active, d.active != ""
}

// Over returns the last hovered target of the active gesture.
func (d *DragAdapter) Over() Target { return d.over }

// HoverBucket is the bucket the current hover target resolves to.
func (d *DragAdapter) HoverBucket() (model.Bucket, bool) {
	if d.active == "" {
		return "", false
	}
	return d.Resolve(d.over)
}

func (d *DragAdapter) reset() {
	d.active = ""
	d.over = NoTarget()
}
