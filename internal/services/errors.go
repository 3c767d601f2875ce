package services

import (
	"errors"
	"fmt"
	"time"
)

// ErrSolveTimeout is returned when every poll attempt reported pending and
// the solve budget was exhausted.
var ErrSolveTimeout = errors.New("timed out waiting for captcha solution")

// SubmissionError means the solving service rejected the captcha job. The
// attempt does not retry submission.
type SubmissionError struct {
	Response string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("captcha submission rejected: %s", e.Response)
}

// TransportError wraps a network failure while talking to the solving
// service, during submit or poll.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("captcha service %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ElementTimeoutError means an expected page element never appeared within
// its wait budget. Fatal during the search/result states, expected and
// non-fatal during captcha detection probing.
type ElementTimeoutError struct {
	Selector string
	Timeout  time.Duration
}

func (e *ElementTimeoutError) Error() string {
	return fmt.Sprintf("element %q did not appear within %s", e.Selector, e.Timeout)
}
