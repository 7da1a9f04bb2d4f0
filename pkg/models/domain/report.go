package domain

import (
	"fmt"
	"time"
)

// NoDataArtifact replaces the artifact of a request that produced no rows.
const NoDataArtifact = "No data found for the specified date range"

// DayOutcome is the recorded result of attempting one day of one request.
// It is never mutated after creation.
type DayOutcome struct {
	DayKey        string
	AttemptedPath string
	Success       bool
	// ListedSize is the size reported by the directory listing.
	ListedSize    int64
	HasListedSize bool
	// ByteSize is the length of the bytes actually downloaded.
	ByteSize     int64
	SizeMismatch bool
	RowsAdded    int
	ErrorKind    ErrorKind
	Detail       string
}

// ConsolidatedDataset holds the provenance-augmented header and the rows in day order.
type ConsolidatedDataset struct {
	Header string
	Rows   []string
}

// HasHeader reports whether some day has fixed the header.
func (d ConsolidatedDataset) HasHeader() bool {
	return d.Header != ""
}

// Totals summarises one request.
type Totals struct {
	Days           int
	SuccessfulDays int
	FailedDays     int
	Rows           int
	Bytes          int64
	ArtifactSize   int
}

// RequestReport is the frozen result of one FetchRequest.
type RequestReport struct {
	Request      FetchRequest
	ArtifactName string
	Dataset      ConsolidatedDataset
	Outcomes     []DayOutcome
	Totals       Totals
	Artifact     string
	Success      bool
	// Err is nil on success, a *NoDataError when no rows were found,
	// or a validation error when the request was never attempted.
	Err error
}

// LogEntry is one operator-facing processing line.
type LogEntry struct {
	At      time.Time
	Owner   string
	Message string
}

func (e LogEntry) String() string {
	if e.Owner == "" {
		return e.Message
	}
	return fmt.Sprintf("[%s] %s", e.Owner, e.Message)
}

// BatchReport is the terminal artifact of one invocation.
type BatchReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Host       string
	Profile    string
	Requests   []RequestReport
	Log        []LogEntry
}

// Success is true when at least one request produced data.
func (b *BatchReport) Success() bool {
	for _, r := range b.Requests {
		if r.Success {
			return true
		}
	}
	return false
}

// Succeeded counts requests that produced data.
func (b *BatchReport) Succeeded() int {
	n := 0
	for _, r := range b.Requests {
		if r.Success {
			n++
		}
	}
	return n
}

// TotalRows sums rows over every request.
func (b *BatchReport) TotalRows() int {
	n := 0
	for _, r := range b.Requests {
		n += r.Totals.Rows
	}
	return n
}

// Lines renders the log as plain strings.
func (b *BatchReport) Lines() []string {
	out := make([]string, 0, len(b.Log))
	for _, e := range b.Log {
		out = append(out, e.String())
	}
	return out
}
