package cli

import (
	"errors"
	"fmt"

	"taskboard/internal/board"
	"taskboard/internal/remote"
)

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func (e notFoundError) Is(target error) bool { return target == board.ErrTaskNotFound }

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}

type invalidBucketError struct {
	value string
}

func (e invalidBucketError) Error() string {
	return fmt.Sprintf("invalid status %q (expected todo|in-progress|done)", e.value)
}

func (e invalidBucketError) Unwrap() error { return board.ErrInvalidBucket }

// moveFailedError is a move the API rejected; the local view was rolled back.
type moveFailedError struct {
	notice *board.Notice
}

func (e moveFailedError) Error() string { return e.notice.Message }

func (e moveFailedError) Unwrap() error { return e.notice.Err }

type unauthorizedError struct {
	err error
}

func (e unauthorizedError) Error() string {
	return fmt.Sprintf("%v (set --token or TASKBOARD_TOKEN; `taskboard token` mints one for a local server)", e.err)
}

func (e unauthorizedError) Unwrap() error { return e.err }

func explainRemote(err error) error {
	if errors.Is(err, remote.ErrUnauthorized) {
		return unauthorizedError{err: err}
	}
	return err
}
