package board

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidBucket = errors.New("invalid bucket")
	// ErrTaskNotFound is matched (via errors.Is) by remote errors meaning the task
	// no longer exists server-side.
	ErrTaskNotFound = errors.New("task not found")
)

type UnknownTaskError struct {
	ID string
}

func (e UnknownTaskError) Error() string {
	return fmt.Sprintf("unknown task: %s", e.ID)
}

type AlreadyTrackedError struct {
	ID string
}

func (e AlreadyTrackedError) Error() string {
	return fmt.Sprintf("task already has a mutation in flight: %s", e.ID)
}
