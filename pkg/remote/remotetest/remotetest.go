// Package remotetest provides an in-memory remote store for tests.
package remotetest

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/de-tools/export-consolidator/pkg/models/domain"
	"github.com/de-tools/export-consolidator/pkg/remote"
)

// Store is a tree of files keyed by absolute path.
type Store struct {
	mu sync.Mutex
	// files maps a full path to its content.
	files map[string][]byte
	// sizes overrides the listed size of a path.
	sizes map[string]int64
	// failures injects an error for any operation on a path or directory.
	failures map[string]error
	// delays blocks any operation on a path or directory until ctx ends or the delay passes.
	delays map[string]time.Duration

	opened atomic.Int64
	closed atomic.Int64
}

func NewStore() *Store {
	return &Store{
		files:    make(map[string][]byte),
		sizes:    make(map[string]int64),
		failures: make(map[string]error),
		delays:   make(map[string]time.Duration),
	}
}

// Put stores content at p.
func (s *Store) Put(p string, content string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path.Clean(p)] = []byte(content)
	return s
}

// ListSize makes the listing report size for p instead of the content length.
func (s *Store) ListSize(p string, size int64) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sizes[path.Clean(p)] = size
	return s
}

// Fail makes every operation touching p return err.
func (s *Store) Fail(p string, err error) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path.Clean(p)] = err
	return s
}

// Delay makes every operation touching p wait for d.
func (s *Store) Delay(p string, d time.Duration) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[path.Clean(p)] = d
	return s
}

// Opened counts sessions handed out.
func (s *Store) Opened() int64 { return s.opened.Load() }

// Closed counts Close calls across every session.
func (s *Store) Closed() int64 { return s.closed.Load() }

// Session opens a new session over the store.
func (s *Store) Session() *Session {
	s.opened.Add(1)
	return &Session{store: s}
}

// Session is a remote.Session over a Store.
type Session struct {
	store  *Store
	closes atomic.Int64
}

var _ remote.Session = (*Session)(nil)

// Closes counts Close calls on this session.
func (s *Session) Closes() int64 { return s.closes.Load() }

func (s *Session) ReadDir(ctx context.Context, dir string) ([]remote.FileEntry, error) {
	dir = path.Clean(dir)
	if err := s.store.gate(ctx, dir); err != nil {
		return nil, err
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	prefix := strings.TrimSuffix(dir, "/") + "/"
	seen := make(map[string]remote.FileEntry)
	for p, content := range s.store.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		name, _, nested := strings.Cut(rest, "/")
		if nested {
			seen[name] = remote.FileEntry{Name: name, IsDir: true}
			continue
		}
		size := int64(len(content))
		if override, ok := s.store.sizes[p]; ok {
			size = override
		}
		seen[name] = remote.FileEntry{Name: name, Size: size}
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("read dir %s: %w", dir, fs.ErrNotExist)
	}

	entries := make([]remote.FileEntry, 0, len(seen))
	for _, e := range seen {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (s *Session) ReadFile(ctx context.Context, p string) ([]byte, error) {
	p = path.Clean(p)
	if err := s.store.gate(ctx, p); err != nil {
		return nil, err
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	content, ok := s.store.files[p]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", p, fs.ErrNotExist)
	}
	return append([]byte(nil), content...), nil
}

func (s *Session) Close() error {
	s.closes.Add(1)
	s.store.closed.Add(1)
	return nil
}

func (s *Store) gate(ctx context.Context, p string) error {
	s.mu.Lock()
	delay := s.delays[p]
	failure := s.failures[p]
	s.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return failure
}

// Dialer hands out sessions over a Store, failing profiles listed in Refuse.
// A refused profile still returns a partial session when Partial is set, so
// release accounting can be checked.
type Dialer struct {
	Store   *Store
	Refuse  map[string]error
	Partial bool

	mu    sync.Mutex
	Tried []string
}

var _ remote.Dialer = (*Dialer)(nil)

func (d *Dialer) Dial(_ context.Context, _ domain.ConnectionDescriptor, profile domain.ConnectionProfile) (remote.Session, error) {
	d.mu.Lock()
	d.Tried = append(d.Tried, profile.Name)
	d.mu.Unlock()

	if err, refused := d.Refuse[profile.Name]; refused {
		if d.Partial {
			return d.Store.Session(), err
		}
		return nil, err
	}
	return d.Store.Session(), nil
}
