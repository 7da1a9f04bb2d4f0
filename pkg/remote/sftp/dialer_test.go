package sftp

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/de-tools/export-consolidator/pkg/models/domain"
	"github.com/de-tools/export-consolidator/pkg/services/negotiator"
	sftpclient "github.com/pkg/sftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// startServer runs an SSH server on loopback that only accepts the given
// ciphers and serves handlers over the sftp subsystem.
func startServer(t *testing.T, authorized ssh.PublicKey, ciphers []string, handlers sftpclient.Handlers) string {
	t.Helper()

	_, hostKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	hostSigner, err := ssh.NewSignerFromKey(hostKey)
	require.NoError(t, err)

	cfg := &ssh.ServerConfig{
		Config: ssh.Config{Ciphers: ciphers},
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if bytes.Equal(key.Marshal(), authorized.Marshal()) {
				return nil, nil
			}
			return nil, fmt.Errorf("unknown public key")
		},
	}
	cfg.AddHostKey(hostSigner)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveConn(conn, cfg, handlers)
		}
	}()
	return ln.Addr().String()
}

func serveConn(conn net.Conn, cfg *ssh.ServerConfig, handlers sftpclient.Handlers) {
	defer func() { _ = conn.Close() }()
	_, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		return
	}
	go ssh.DiscardRequests(reqs)

	for nc := range chans {
		if nc.ChannelType() != "session" {
			_ = nc.Reject(ssh.UnknownChannelType, "unsupported channel type")
			continue
		}
		ch, requests, err := nc.Accept()
		if err != nil {
			return
		}
		go func(in <-chan *ssh.Request) {
			for req := range in {
				ok := req.Type == "subsystem" && subsystemName(req.Payload) == "sftp"
				_ = req.Reply(ok, nil)
			}
		}(requests)

		server := sftpclient.NewRequestServer(ch, handlers)
		go func() {
			_ = server.Serve()
			_ = server.Close()
		}()
	}
}

func subsystemName(payload []byte) string {
	if len(payload) < 4 {
		return ""
	}
	n := binary.BigEndian.Uint32(payload[:4])
	if int(n) > len(payload)-4 {
		return ""
	}
	return string(payload[4 : 4+n])
}

func testProfile(name string, ciphers ...string) domain.ConnectionProfile {
	return domain.ConnectionProfile{
		Name:              name,
		KeyExchanges:      []string{"diffie-hellman-group14-sha256"},
		Ciphers:           ciphers,
		HostKeyAlgorithms: []string{"ssh-ed25519"},
		MACs:              []string{"hmac-sha2-256"},
	}
}

func TestDialer_ReadsRemoteFiles(t *testing.T) {
	signer, key := generateKey(t)
	addr := startServer(t, signer.PublicKey(), []string{"aes128-ctr"}, sftpclient.InMemHandler())

	dialer := NewDialer(Options{Timeout: 5 * time.Second})
	desc := domain.ConnectionDescriptor{Host: addr, User: "export-user", PrivateKey: key}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := dialer.Dial(ctx, desc, testProfile("modern", "aes128-ctr"))
	require.NoError(t, err)
	session := s.(*Session)
	defer func() { _ = session.Close() }()

	seed(t, session.client,
		[]string{"/56571", "/56571/20250623"},
		map[string]string{"/56571/20250623/OrderDetails.csv": "Order,Total\n1,9.50\n"})

	entries, err := session.ReadDir(ctx, "/56571/20250623/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "OrderDetails.csv", entries[0].Name)

	content, err := session.ReadFile(ctx, "/56571/20250623/OrderDetails.csv")
	require.NoError(t, err)
	assert.Equal(t, "Order,Total\n1,9.50\n", string(content))
}

func TestDialer_NegotiatesFallbackProfile(t *testing.T) {
	signer, key := generateKey(t)
	addr := startServer(t, signer.PublicKey(), []string{"aes128-ctr"}, sftpclient.InMemHandler())

	desc := domain.ConnectionDescriptor{
		Host:       addr,
		User:       "export-user",
		PrivateKey: key,
		Profiles: []domain.ConnectionProfile{
			testProfile("gcm-only", "aes256-gcm@openssh.com"),
			testProfile("ctr", "aes128-ctr"),
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := negotiator.New(NewDialer(Options{Timeout: 5 * time.Second})).Negotiate(ctx, desc)
	require.NoError(t, err)
	defer func() { _ = conn.Session.Close() }()

	assert.Equal(t, "ctr", conn.Profile.Name)
	assert.Equal(t, 2, conn.Attempts)
}

func TestDialer_RejectedKey(t *testing.T) {
	authorized, _ := generateKey(t)
	_, otherKey := generateKey(t)
	addr := startServer(t, authorized.PublicKey(), []string{"aes128-ctr"}, sftpclient.InMemHandler())

	desc := domain.ConnectionDescriptor{Host: addr, User: "export-user", PrivateKey: otherKey}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := NewDialer(Options{Timeout: 5 * time.Second}).Dial(ctx, desc, testProfile("ctr", "aes128-ctr"))
	require.Error(t, err)
	assert.Nil(t, s)
	assert.Contains(t, err.Error(), "ssh handshake")
}

func TestDialer_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, key := generateKey(t)
	desc := domain.ConnectionDescriptor{Host: addr, User: "export-user", PrivateKey: key}

	_, err = NewDialer(Options{Timeout: time.Second}).Dial(context.Background(), desc, testProfile("ctr", "aes128-ctr"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial")
}
