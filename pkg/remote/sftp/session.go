package sftp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"sync"

	"github.com/de-tools/export-consolidator/pkg/remote"
	sftpclient "github.com/pkg/sftp"
)

// Session adapts an SFTP client to remote.Session. Close releases the SFTP
// client and every underlying closer exactly once.
type Session struct {
	client  *sftpclient.Client
	closers []io.Closer

	once     sync.Once
	closeErr error
}

// NewSession wraps client; closers are released after the client, in order.
func NewSession(client *sftpclient.Client, closers ...io.Closer) *Session {
	return &Session{client: client, closers: closers}
}

func (s *Session) ReadDir(ctx context.Context, dir string) ([]remote.FileEntry, error) {
	if s.client == nil {
		return nil, fmt.Errorf("read dir %s: sftp subsystem not available", dir)
	}
	infos, err := call(ctx, func() ([]os.FileInfo, error) {
		return s.client.ReadDir(dir)
	})
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, normalize(err))
	}

	entries := make([]remote.FileEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, remote.FileEntry{
			Name:    info.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			IsDir:   info.IsDir(),
		})
	}
	return entries, nil
}

func (s *Session) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if s.client == nil {
		return nil, fmt.Errorf("read %s: sftp subsystem not available", path)
	}
	content, err := call(ctx, func() ([]byte, error) {
		f, err := s.client.Open(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()

		var buf bytes.Buffer
		if _, err := f.WriteTo(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, normalize(err))
	}
	return content, nil
}

func (s *Session) Close() error {
	s.once.Do(func() {
		var errs []error
		if s.client != nil {
			if err := s.client.Close(); err != nil && !errors.Is(err, io.EOF) {
				errs = append(errs, err)
			}
		}
		for _, c := range s.closers {
			if err := c.Close(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				errs = append(errs, err)
			}
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// call runs fn and returns early with ctx.Err() when ctx ends first. The
// abandoned call finishes on its own once the connection is closed.
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func normalize(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return err
	}
	var status *sftpclient.StatusError
	if errors.As(err, &status) && status.FxCode() == sftpclient.ErrSSHFxNoSuchFile {
		return fmt.Errorf("%w: %v", fs.ErrNotExist, err)
	}
	return err
}
