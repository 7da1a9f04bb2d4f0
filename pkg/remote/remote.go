package remote

import (
	"context"
	"time"

	"github.com/de-tools/export-consolidator/pkg/models/domain"
)

// FileEntry is one item of a remote directory listing.
type FileEntry struct {
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Session is an established connection to the remote store. Implementations
// must honour ctx deadlines and report missing paths as fs.ErrNotExist.
type Session interface {
	ReadDir(ctx context.Context, dir string) ([]FileEntry, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)
	Close() error
}

// Dialer opens a session using one connection profile. On failure it may still
// return a non-nil Session holding partially acquired resources; the caller
// must close it.
type Dialer interface {
	Dial(ctx context.Context, desc domain.ConnectionDescriptor, profile domain.ConnectionProfile) (Session, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, desc domain.ConnectionDescriptor, profile domain.ConnectionProfile) (Session, error)

func (f DialerFunc) Dial(ctx context.Context, desc domain.ConnectionDescriptor, profile domain.ConnectionProfile) (Session, error) {
	return f(ctx, desc, profile)
}
