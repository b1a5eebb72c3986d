package remote

import (
	"errors"
	"fmt"
	"net/http"

	"taskboard/internal/board"
)

// ErrUnauthorized is matched by a 401 StatusError.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError is a non-2xx response from the task API.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	text := http.StatusText(e.Code)
	if e.Message == "" {
		return fmt.Sprintf("%d %s", e.Code, text)
	}
	return fmt.Sprintf("%d %s: %s", e.Code, text, e.Message)
}

// Is lets callers match by meaning: a 404 is board.ErrTaskNotFound, a 401 is
// ErrUnauthorized.
func (e *StatusError) Is(target error) bool {
	switch target {
	case board.ErrTaskNotFound:
		return e.Code == http.StatusNotFound
	case ErrUnauthorized:
		return e.Code == http.StatusUnauthorized
	}
	return false
}
