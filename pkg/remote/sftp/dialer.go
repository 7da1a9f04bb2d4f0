package sftp

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/de-tools/export-consolidator/pkg/models/domain"
	"github.com/de-tools/export-consolidator/pkg/remote"
	sftpclient "github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const defaultPort = "22"

type Options struct {
	// Timeout bounds the TCP connect and SSH handshake when ctx has no deadline.
	Timeout time.Duration
	// KnownHostsPath enables host key verification. When empty any host key is accepted.
	KnownHostsPath string
}

// Dialer opens SFTP sessions over SSH with the algorithm set of one profile.
type Dialer struct {
	opts Options
}

var _ remote.Dialer = (*Dialer)(nil)

func NewDialer(opts Options) *Dialer {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Dialer{opts: opts}
}

func (d *Dialer) Dial(
	ctx context.Context,
	desc domain.ConnectionDescriptor,
	profile domain.ConnectionProfile,
) (remote.Session, error) {
	signer, err := ParseSigner(desc.PrivateKey, desc.Passphrase)
	if err != nil {
		return nil, err
	}

	hostKeyCallback, err := d.hostKeyCallback(ctx)
	if err != nil {
		return nil, err
	}

	cfg := &ssh.ClientConfig{
		Config: ssh.Config{
			KeyExchanges: profile.KeyExchanges,
			Ciphers:      profile.Ciphers,
			MACs:         profile.MACs,
		},
		User:              desc.User,
		Auth:              []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback:   hostKeyCallback,
		HostKeyAlgorithms: profile.HostKeyAlgorithms,
		Timeout:           d.opts.Timeout,
	}

	addr := HostPort(desc.Host)
	dialer := net.Dialer{Timeout: d.opts.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(d.opts.Timeout)
	}
	_ = conn.SetDeadline(deadline)

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	_ = conn.SetDeadline(time.Time{})

	client := ssh.NewClient(sshConn, chans, reqs)
	sftpClient, err := sftpclient.NewClient(client)
	if err != nil {
		return NewSession(nil, client), fmt.Errorf("start sftp subsystem on %s: %w", addr, err)
	}

	return NewSession(sftpClient, client), nil
}

func (d *Dialer) hostKeyCallback(ctx context.Context) (ssh.HostKeyCallback, error) {
	if d.opts.KnownHostsPath == "" {
		zerolog.Ctx(ctx).Debug().Msg("host key verification disabled, no known_hosts configured")
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(d.opts.KnownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("load known_hosts %s: %w", d.opts.KnownHostsPath, err)
	}
	return cb, nil
}

// HostPort appends the default SSH port when host has none.
func HostPort(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, defaultPort)
}
