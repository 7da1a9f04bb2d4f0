package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/de-tools/export-consolidator/pkg/models/domain"
	"github.com/de-tools/export-consolidator/pkg/remote"
	"github.com/rs/zerolog"
)

// Result is a day outcome plus the downloaded content on success.
type Result struct {
	Outcome domain.DayOutcome
	Content []byte
}

type Options struct {
	// Timeout bounds each list and download call. Zero disables the per-call bound.
	Timeout time.Duration
}

// Fetcher downloads one file for one day. It never returns an error: every
// failure is captured in the outcome.
type Fetcher struct {
	opts Options
}

func New(opts Options) *Fetcher {
	return &Fetcher{opts: opts}
}

// Fetch lists /{ownerID}/{dayKey}/ and downloads fileName when present.
func (f *Fetcher) Fetch(ctx context.Context, session remote.Session, req domain.FetchRequest, dayKey string) Result {
	logger := zerolog.Ctx(ctx).With().Str("owner", req.OwnerID).Str("day", dayKey).Logger()
	outcome := domain.DayOutcome{
		DayKey:        dayKey,
		AttemptedPath: req.RemotePath(dayKey),
	}

	entries, err := f.list(ctx, session, req.DayDir(dayKey))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return f.notFound(logger, outcome, "day directory not found")
		}
		return f.transportFailure(logger, outcome, err)
	}

	entry, ok := find(entries, req.FileName)
	if !ok {
		return f.notFound(logger, outcome, "file not found")
	}
	outcome.ListedSize = entry.Size
	outcome.HasListedSize = true

	content, err := f.download(ctx, session, outcome.AttemptedPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return f.notFound(logger, outcome, "file disappeared before download")
		}
		return f.transportFailure(logger, outcome, err)
	}

	outcome.ByteSize = int64(len(content))
	outcome.SizeMismatch = outcome.ByteSize != outcome.ListedSize
	if outcome.SizeMismatch {
		logger.Warn().
			Int64("listed", outcome.ListedSize).
			Int64("downloaded", outcome.ByteSize).
			Msg("downloaded size differs from listing")
	}
	outcome.Success = true
	logger.Debug().Int64("bytes", outcome.ByteSize).Msg("downloaded")
	return Result{Outcome: outcome, Content: content}
}

// List returns the entries of one day's directory.
func (f *Fetcher) List(ctx context.Context, session remote.Session, req domain.FetchRequest, dayKey string) ([]remote.FileEntry, error) {
	entries, err := f.list(ctx, session, req.DayDir(dayKey))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", req.DayDir(dayKey), domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	return entries, nil
}

func (f *Fetcher) list(ctx context.Context, session remote.Session, dir string) ([]remote.FileEntry, error) {
	ctx, cancel := f.bound(ctx)
	defer cancel()
	return session.ReadDir(ctx, dir)
}

func (f *Fetcher) download(ctx context.Context, session remote.Session, path string) ([]byte, error) {
	ctx, cancel := f.bound(ctx)
	defer cancel()
	return session.ReadFile(ctx, path)
}

func (f *Fetcher) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, f.opts.Timeout)
}

func (f *Fetcher) notFound(logger zerolog.Logger, outcome domain.DayOutcome, detail string) Result {
	outcome.Success = false
	outcome.ErrorKind = domain.ErrorKindNotFound
	outcome.Detail = detail
	logger.Debug().Msg(detail)
	return Result{Outcome: outcome}
}

func (f *Fetcher) transportFailure(logger zerolog.Logger, outcome domain.DayOutcome, err error) Result {
	outcome.Success = false
	outcome.ErrorKind = domain.ErrorKindTransport
	outcome.Detail = err.Error()
	logger.Warn().Err(err).Msg("transport failure")
	return Result{Outcome: outcome}
}

func find(entries []remote.FileEntry, name string) (remote.FileEntry, bool) {
	for _, e := range entries {
		if !e.IsDir && e.Name == name {
			return e, true
		}
	}
	return remote.FileEntry{}, false
}
