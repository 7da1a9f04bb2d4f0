package sftp

import (
	"context"
	"io"
	"io/fs"
	"testing"
	"time"

	sftpclient "github.com/pkg/sftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipeConn struct {
	io.Reader
	io.WriteCloser
}

// newMemSession serves an in-memory filesystem over pipes and returns a
// Session on top of it plus a raw client for seeding files.
func newMemSession(t *testing.T) (*Session, *sftpclient.Client) {
	t.Helper()
	clientRead, serverWrite := io.Pipe()
	serverRead, clientWrite := io.Pipe()

	server := sftpclient.NewRequestServer(pipeConn{serverRead, serverWrite}, sftpclient.InMemHandler())
	go func() {
		_ = server.Serve()
		_ = server.Close()
	}()
	t.Cleanup(func() { _ = server.Close() })

	client, err := sftpclient.NewClientPipe(clientRead, clientWrite)
	require.NoError(t, err)

	return NewSession(client), client
}

func seed(t *testing.T, client *sftpclient.Client, dirs []string, files map[string]string) {
	t.Helper()
	for _, d := range dirs {
		require.NoError(t, client.Mkdir(d))
	}
	for p, content := range files {
		f, err := client.Create(p)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}
}

func TestSession_ReadDirAndReadFile(t *testing.T) {
	session, client := newMemSession(t)
	seed(t, client,
		[]string{"/56571", "/56571/20250623"},
		map[string]string{
			"/56571/20250623/TimeEntries.csv":  "Employee,Hours\nAda,8\n",
			"/56571/20250623/OrderDetails.csv": "Order,Total\n1,9.50\n",
		})
	ctx := context.Background()

	entries, err := session.ReadDir(ctx, "/56571/20250623/")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	sizes := map[string]int64{}
	for _, e := range entries {
		sizes[e.Name] = e.Size
	}
	assert.Equal(t, int64(len("Employee,Hours\nAda,8\n")), sizes["TimeEntries.csv"])

	content, err := session.ReadFile(ctx, "/56571/20250623/TimeEntries.csv")
	require.NoError(t, err)
	assert.Equal(t, "Employee,Hours\nAda,8\n", string(content))

	require.NoError(t, session.Close())
	require.NoError(t, session.Close(), "second close is a no-op")
}

func TestSession_MissingPathsAreNotExist(t *testing.T) {
	session, client := newMemSession(t)
	seed(t, client, []string{"/56571"}, nil)
	defer func() { _ = session.Close() }()
	ctx := context.Background()

	_, err := session.ReadDir(ctx, "/56571/20250624/")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = session.ReadFile(ctx, "/56571/missing.csv")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestSession_WithoutSubsystem(t *testing.T) {
	closer := &countingCloser{}
	session := NewSession(nil, closer)

	_, err := session.ReadDir(context.Background(), "/")
	assert.Error(t, err)

	require.NoError(t, session.Close())
	require.NoError(t, session.Close())
	assert.Equal(t, 1, closer.n)
}

func TestCall_HonoursDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	release := make(chan struct{})
	defer close(release)

	_, err := call(ctx, func() (int, error) {
		<-release
		return 1, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCall_ReturnsResult(t *testing.T) {
	v, err := call(context.Background(), func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

type countingCloser struct{ n int }

func (c *countingCloser) Close() error {
	c.n++
	return nil
}
