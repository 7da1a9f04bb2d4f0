package report

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/de-tools/export-consolidator/pkg/models/domain"
)

// Builder assembles a BatchReport one request at a time and keeps the
// operator-facing processing log. It is safe for concurrent logging.
type Builder struct {
	clock func() time.Time

	mu     sync.Mutex
	report domain.BatchReport
}

func NewBuilder(host string, clock func() time.Time) *Builder {
	if clock == nil {
		clock = time.Now
	}
	return &Builder{
		clock:  clock,
		report: domain.BatchReport{Host: host, StartedAt: clock()},
	}
}

// Logf appends a processing line. owner is empty for batch-level lines.
func (b *Builder) Logf(owner, format string, args ...any) {
	entry := domain.LogEntry{At: b.clock(), Owner: owner, Message: fmt.Sprintf(format, args...)}
	b.mu.Lock()
	b.report.Log = append(b.report.Log, entry)
	b.mu.Unlock()
}

// SetProfile records the connection profile the batch ran under.
func (b *Builder) SetProfile(name string) {
	b.mu.Lock()
	b.report.Profile = name
	b.mu.Unlock()
}

// AddRequest freezes one processed request. A request without rows gets the
// no-data artifact and a *domain.NoDataError.
func (b *Builder) AddRequest(req domain.FetchRequest, ds domain.ConsolidatedDataset, outcomes []domain.DayOutcome) domain.RequestReport {
	rr := Build(req, ds, outcomes)
	if rr.Success {
		b.Logf(req.Name(), "%s: %d rows from %d of %d days", req.FileName, rr.Totals.Rows, rr.Totals.SuccessfulDays, rr.Totals.Days)
	} else {
		b.Logf(req.Name(), "%s: %v", req.FileName, rr.Err)
	}

	b.mu.Lock()
	b.report.Requests = append(b.report.Requests, rr)
	b.mu.Unlock()
	return rr
}

// AddFailure records a request that could not be attempted.
func (b *Builder) AddFailure(req domain.FetchRequest, err error) domain.RequestReport {
	rr := domain.RequestReport{
		Request:  req,
		Artifact: domain.NoDataArtifact,
		Err:      err,
	}
	rr.Totals.ArtifactSize = len(rr.Artifact)
	b.Logf(req.Name(), "request skipped: %v", err)

	b.mu.Lock()
	b.report.Requests = append(b.report.Requests, rr)
	b.mu.Unlock()
	return rr
}

// Finish stamps the end time and returns the report with a time-ordered log.
// The builder must not be used afterwards.
func (b *Builder) Finish() *domain.BatchReport {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.report.FinishedAt = b.clock()
	sort.SliceStable(b.report.Log, func(i, j int) bool {
		return b.report.Log[i].At.Before(b.report.Log[j].At)
	})
	out := b.report
	return &out
}

// Build computes the artifact and totals of one request.
func Build(req domain.FetchRequest, ds domain.ConsolidatedDataset, outcomes []domain.DayOutcome) domain.RequestReport {
	rr := domain.RequestReport{
		Request:      req,
		ArtifactName: req.ArtifactName(),
		Dataset:      ds,
		Outcomes:     outcomes,
		Totals:       totals(outcomes),
	}
	rr.Success = rr.Totals.Rows > 0
	if rr.Success {
		rr.Artifact = Artifact(ds)
	} else {
		rr.Artifact = domain.NoDataArtifact
		rr.Err = &domain.NoDataError{OwnerID: req.OwnerID, Range: req.Range, Outcomes: outcomes}
	}
	rr.Totals.ArtifactSize = len(rr.Artifact)
	return rr
}

// Artifact joins the header and rows with newlines, without a trailing newline.
// A dataset without rows yields the no-data sentinel.
func Artifact(ds domain.ConsolidatedDataset) string {
	if !ds.HasHeader() || len(ds.Rows) == 0 {
		return domain.NoDataArtifact
	}
	var sb strings.Builder
	sb.WriteString(ds.Header)
	for _, row := range ds.Rows {
		sb.WriteByte('\n')
		sb.WriteString(row)
	}
	return sb.String()
}

func totals(outcomes []domain.DayOutcome) domain.Totals {
	t := domain.Totals{Days: len(outcomes)}
	for _, o := range outcomes {
		if !o.Success {
			continue
		}
		t.SuccessfulDays++
		t.Rows += o.RowsAdded
		t.Bytes += o.ByteSize
	}
	t.FailedDays = t.Days - t.SuccessfulDays
	return t
}
