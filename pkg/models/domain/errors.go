package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound  = errors.New("file not found")
	ErrTransport = errors.New("transport error")
	ErrNoData    = errors.New("no data found")
)

// ErrorKind classifies why a day did not contribute content.
type ErrorKind string

const (
	ErrorKindNone      ErrorKind = ""
	ErrorKindNotFound  ErrorKind = "not_found"
	ErrorKindTransport ErrorKind = "transport_error"
	ErrorKindEmpty     ErrorKind = "empty"
)

// Err maps the kind onto its sentinel error.
func (k ErrorKind) Err() error {
	switch k {
	case ErrorKindNotFound:
		return ErrNotFound
	case ErrorKindTransport:
		return ErrTransport
	case ErrorKindEmpty:
		return ErrNoData
	default:
		return nil
	}
}

// ConnectionAttempt records one failed negotiation attempt.
type ConnectionAttempt struct {
	Profile string
	Err     error
}

// ConnectionError is returned when every connection profile has been exhausted.
type ConnectionError struct {
	Host     string
	Attempts []ConnectionAttempt
}

func (e *ConnectionError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("connect to %s: no connection profiles to try", e.Host)
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Profile, a.Err))
	}
	return fmt.Sprintf("connect to %s: all %d profiles failed (%s)", e.Host, len(e.Attempts), strings.Join(parts, "; "))
}

// Unwrap returns the last underlying error.
func (e *ConnectionError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// NoDataError reports that no day of a request yielded rows. It carries the full
// day log so callers can tell missing files apart from transient failures.
type NoDataError struct {
	OwnerID  string
	Range    DateRange
	Outcomes []DayOutcome
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no data found for %s in %s: %d of %d days had content (%d missing, %d failed)",
		e.OwnerID, e.Range, e.count(ErrorKindNone), len(e.Outcomes), e.count(ErrorKindNotFound), e.count(ErrorKindTransport))
}

func (e *NoDataError) Unwrap() error { return ErrNoData }

// AllMissing reports whether every day was absent rather than failing.
func (e *NoDataError) AllMissing() bool {
	return e.count(ErrorKindNotFound) == len(e.Outcomes)
}

// TransientFailures counts days that failed with a transport error.
func (e *NoDataError) TransientFailures() int {
	return e.count(ErrorKindTransport)
}

func (e *NoDataError) count(kind ErrorKind) int {
	n := 0
	for _, o := range e.Outcomes {
		if o.ErrorKind == kind {
			n++
		}
	}
	return n
}
