package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/de-tools/export-consolidator/pkg/models/domain"
	"github.com/de-tools/export-consolidator/pkg/remote"
	"github.com/de-tools/export-consolidator/pkg/services/consolidator"
	"github.com/de-tools/export-consolidator/pkg/services/daterange"
	"github.com/de-tools/export-consolidator/pkg/services/fetcher"
	"github.com/de-tools/export-consolidator/pkg/services/negotiator"
	"github.com/de-tools/export-consolidator/pkg/services/report"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	// Timeout bounds every list and download call against the remote store.
	Timeout time.Duration `mapstructure:"operation_timeout"`
	// Concurrency is the number of days fetched in parallel. Values below 2
	// process days strictly one after another.
	Concurrency   int                  `mapstructure:"concurrency"`
	Consolidation consolidator.Options `mapstructure:"consolidation"`
	Clock         func() time.Time     `mapstructure:"-"`
}

// Engine runs batches of fetch requests over one negotiated session.
type Engine struct {
	negotiator   *negotiator.Negotiator
	fetcher      *fetcher.Fetcher
	consolidator *consolidator.Consolidator
	concurrency  int
	clock        func() time.Time
}

func New(dialer remote.Dialer, opts Options) *Engine {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		negotiator:   negotiator.New(dialer),
		fetcher:      fetcher.New(fetcher.Options{Timeout: opts.Timeout}),
		consolidator: consolidator.New(opts.Consolidation),
		concurrency:  opts.Concurrency,
		clock:        clock,
	}
}

// Run negotiates one session, processes every request in order and returns
// the batch report. Day and request failures are recorded in the report. The
// error is non-nil only when no session could be established, in which case
// it is a *domain.ConnectionError and the report carries just the log, or
// when ctx ended while requests were processed.
func (e *Engine) Run(ctx context.Context, desc domain.ConnectionDescriptor, requests []domain.FetchRequest) (*domain.BatchReport, error) {
	logger := zerolog.Ctx(ctx)
	b := report.NewBuilder(desc.Host, e.clock)
	b.Logf("", "connecting to %s", desc.Host)

	conn, err := e.negotiator.Negotiate(ctx, desc)
	if err != nil {
		b.Logf("", "connection failed: %v", err)
		return b.Finish(), err
	}
	b.SetProfile(conn.Profile.Name)
	b.Logf("", "connected with profile %s after %d attempt(s)", conn.Profile.Name, conn.Attempts)

	e.process(ctx, b, conn.Session, requests)

	batch := b.Finish()
	logger.Info().
		Int("requests", len(batch.Requests)).
		Int("succeeded", batch.Succeeded()).
		Int("rows", batch.TotalRows()).
		Msg("batch finished")
	if err := ctx.Err(); err != nil {
		return batch, fmt.Errorf("batch interrupted: %w", err)
	}
	return batch, nil
}

func (e *Engine) process(ctx context.Context, b *report.Builder, session remote.Session, requests []domain.FetchRequest) {
	defer e.release(ctx, b, session)
	for _, req := range requests {
		e.processRequest(ctx, b, session, req)
	}
}

// release closes the session exactly once. A close failure is logged and
// never replaces an error already in flight.
func (e *Engine) release(ctx context.Context, b *report.Builder, session remote.Session) {
	if err := session.Close(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to close session")
		b.Logf("", "closing connection failed: %v", err)
		return
	}
	b.Logf("", "connection closed")
}

func (e *Engine) processRequest(ctx context.Context, b *report.Builder, session remote.Session, req domain.FetchRequest) {
	if err := req.Validate(); err != nil {
		b.AddFailure(req, fmt.Errorf("invalid request: %w", err))
		return
	}

	name := req.Name()
	logger := zerolog.Ctx(ctx).With().Str("owner", req.OwnerID).Str("file", req.FileName).Logger()
	days := daterange.Enumerate(req.Range)
	b.Logf(name, "processing %s for %d days: %s", req.FileName, len(days), strings.Join(days, ", "))

	var ds domain.ConsolidatedDataset
	outcomes := make([]domain.DayOutcome, 0, len(days))
	step := func(res fetcher.Result) {
		outcome := res.Outcome
		if outcome.Success {
			merge := e.consolidator.Consolidate(outcome.DayKey, name, res.Content, ds)
			if merge.Empty() {
				outcome.Success = false
				outcome.ErrorKind = domain.ErrorKindEmpty
				outcome.Detail = "file is empty"
			} else {
				ds = merge.Dataset
				outcome.RowsAdded = merge.RowsAdded
			}
		}
		b.Logf(name, "%s", describe(outcome))
		outcomes = append(outcomes, outcome)
	}

	if e.concurrency > 1 {
		for _, res := range e.fetchConcurrently(logger.WithContext(ctx), session, req, days) {
			step(res)
		}
	} else {
		ctx := logger.WithContext(ctx)
		for _, day := range days {
			step(e.fetcher.Fetch(ctx, session, req, day))
		}
	}

	rr := b.AddRequest(req, ds, outcomes)
	logger.Info().
		Bool("success", rr.Success).
		Int("rows", rr.Totals.Rows).
		Int("days", rr.Totals.SuccessfulDays).
		Msg("request processed")
}

// fetchConcurrently downloads days through a bounded pool and returns the
// results in day order. A panic on a worker is re-raised on the calling
// goroutine once every worker has stopped, so deferred cleanup still runs.
func (e *Engine) fetchConcurrently(ctx context.Context, session remote.Session, req domain.FetchRequest, days []string) []fetcher.Result {
	results := make([]fetcher.Result, len(days))
	var (
		g         errgroup.Group
		panicOnce sync.Once
		panicked  any
	)
	g.SetLimit(e.concurrency)
	for i, day := range days {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					panicOnce.Do(func() { panicked = r })
				}
			}()
			results[i] = e.fetcher.Fetch(ctx, session, req, day)
			return nil
		})
	}
	_ = g.Wait()
	if panicked != nil {
		panic(panicked)
	}
	return results
}

func describe(o domain.DayOutcome) string {
	switch {
	case o.Success && o.SizeMismatch:
		return fmt.Sprintf("%s: %d rows (%d bytes, listing reported %d)", o.DayKey, o.RowsAdded, o.ByteSize, o.ListedSize)
	case o.Success:
		return fmt.Sprintf("%s: %d rows (%d bytes)", o.DayKey, o.RowsAdded, o.ByteSize)
	case o.ErrorKind == domain.ErrorKindNotFound:
		return fmt.Sprintf("%s: no file at %s", o.DayKey, o.AttemptedPath)
	case o.ErrorKind == domain.ErrorKindEmpty:
		return fmt.Sprintf("%s: %s exists but is empty", o.DayKey, o.AttemptedPath)
	default:
		return fmt.Sprintf("%s: error accessing %s: %s", o.DayKey, o.AttemptedPath, o.Detail)
	}
}
