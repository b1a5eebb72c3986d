package model

import (
	"strings"
	"time"
)

// Bucket is a task's status column.
type Bucket string

const (
	BucketTodo       Bucket = "TODO"
	BucketInProgress Bucket = "IN_PROGRESS"
	BucketDone       Bucket = "DONE"
)

// Buckets returns the buckets in column order.
func Buckets() []Bucket {
	return []Bucket{BucketTodo, BucketInProgress, BucketDone}
}

// Valid reports whether b is one of the known buckets.
func (b Bucket) Valid() bool {
	switch b {
	case BucketTodo, BucketInProgress, BucketDone:
		return true
	default:
		return false
	}
}

// Index returns the column position of b, or -1 when b is unknown.
func (b Bucket) Index() int {
	for i, x := range Buckets() {
		if x == b {
			return i
		}
	}
	return -1
}

func (b Bucket) Label() string {
	switch b {
	case BucketTodo:
		return "To Do"
	case BucketInProgress:
		return "In Progress"
	case BucketDone:
		return "Done"
	default:
		return string(b)
	}
}

// ParseBucket accepts the wire form ("IN_PROGRESS") as well as loose user input
// ("in-progress", "in progress", "doing").
func ParseBucket(s string) (Bucket, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	switch s {
	case "TODO", "TO_DO":
		return BucketTodo, true
	case "IN_PROGRESS", "DOING", "WIP":
		return BucketInProgress, true
	case "DONE":
		return BucketDone, true
	default:
		return "", false
	}
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Task is the unit shown on the board. Only Bucket is touched by the
// reconciliation engine; every other field is carried through unchanged.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Bucket      Bucket     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	AssigneeID  string     `json:"assigneeId,omitempty"`
	Assignee    string     `json:"assignee,omitempty"`
	ProjectID   string     `json:"projectId,omitempty"`
	ProjectName string     `json:"projectName,omitempty"`
	Comments    int        `json:"comments,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// WithBucket returns a copy of t placed in b.
func (t Task) WithBucket(b Bucket) Task {
	t.Bucket = b
	return t
}

// Clone returns a deep copy (DueDate is the only pointer field).
func (t Task) Clone() Task {
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	return t
}
