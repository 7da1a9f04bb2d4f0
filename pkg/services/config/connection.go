package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/de-tools/export-consolidator/pkg/models/domain"
	"github.com/de-tools/export-consolidator/pkg/remote/sftp"
)

var ErrNoPrivateKey = errors.New("no private key configured")

// ResolvePrivateKey reads the key from PrivateKeyPath, falling back to the
// environment variable named by PrivateKeyEnv. The result is normalized to PEM.
func (c ConnectionConfig) ResolvePrivateKey(getenv func(string) string) ([]byte, error) {
	if c.PrivateKeyPath != "" {
		raw, err := os.ReadFile(c.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key: %w", err)
		}
		return sftp.NormalizePrivateKey(raw), nil
	}

	name := c.PrivateKeyEnv
	if name == "" {
		name = DefaultPrivateKeyEnv
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	raw := strings.TrimSpace(getenv(name))
	if raw == "" {
		return nil, fmt.Errorf("%w: set connection.private_key_path or %s", ErrNoPrivateKey, name)
	}
	return sftp.NormalizePrivateKey([]byte(raw)), nil
}

// Descriptor builds the connection descriptor handed to the engine.
func (c ConnectionConfig) Descriptor(getenv func(string) string) (domain.ConnectionDescriptor, error) {
	if c.Host == "" {
		return domain.ConnectionDescriptor{}, fmt.Errorf("connection.host is required")
	}
	if c.User == "" {
		return domain.ConnectionDescriptor{}, fmt.Errorf("connection.user is required")
	}
	key, err := c.ResolvePrivateKey(getenv)
	if err != nil {
		return domain.ConnectionDescriptor{}, err
	}

	desc := domain.ConnectionDescriptor{
		Host:       c.Address(),
		User:       c.User,
		PrivateKey: key,
		Profiles:   c.Profiles,
	}
	if c.Passphrase != "" {
		desc.Passphrase = []byte(c.Passphrase)
	}
	return desc, nil
}

// DialerOptions maps the connection settings onto the SFTP dialer.
func (c ConnectionConfig) DialerOptions() sftp.Options {
	return sftp.Options{Timeout: c.DialTimeout, KnownHostsPath: c.KnownHosts}
}
