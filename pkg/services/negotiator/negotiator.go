package negotiator

import (
	"context"
	"fmt"

	"github.com/de-tools/export-consolidator/pkg/models/domain"
	"github.com/de-tools/export-consolidator/pkg/remote"
	"github.com/rs/zerolog"
)

// State is the negotiation state: Idle → Trying(i) → Connected | Exhausted.
type State int

const (
	StateIdle State = iota
	StateTrying
	StateConnected
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTrying:
		return "trying"
	case StateConnected:
		return "connected"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Connection is an established session together with the profile that won.
type Connection struct {
	Session  remote.Session
	Profile  domain.ConnectionProfile
	Attempts int
}

// Negotiator tries connection profiles in order until one succeeds.
type Negotiator struct {
	dialer remote.Dialer
	// observe is notified on every state transition; used by tests.
	observe func(State, int)
}

func New(dialer remote.Dialer) *Negotiator {
	return &Negotiator{dialer: dialer}
}

// Negotiate returns the first session that can be established. Every failed
// attempt releases whatever it partially acquired before the next one starts.
// When all profiles fail the error is a *domain.ConnectionError.
func (n *Negotiator) Negotiate(ctx context.Context, desc domain.ConnectionDescriptor) (*Connection, error) {
	logger := zerolog.Ctx(ctx).With().Str("host", desc.Host).Logger()
	profiles := desc.EffectiveProfiles()
	connErr := &domain.ConnectionError{Host: desc.Host}

	n.transition(StateIdle, -1)
	for i, profile := range profiles {
		if err := ctx.Err(); err != nil {
			connErr.Attempts = append(connErr.Attempts, domain.ConnectionAttempt{Profile: profile.Name, Err: err})
			break
		}

		n.transition(StateTrying, i)
		logger.Debug().Str("profile", profile.Name).Int("attempt", i+1).Msg("trying connection profile")

		session, err := n.dialer.Dial(ctx, desc, profile)
		if err == nil {
			n.transition(StateConnected, i)
			logger.Info().Str("profile", profile.Name).Int("attempt", i+1).Msg("connected")
			return &Connection{Session: session, Profile: profile, Attempts: i + 1}, nil
		}

		if session != nil {
			if cerr := session.Close(); cerr != nil {
				logger.Warn().Err(cerr).Str("profile", profile.Name).Msg("failed to release partial session")
			}
		}
		logger.Warn().Err(err).Str("profile", profile.Name).Msg("connection profile failed")
		connErr.Attempts = append(connErr.Attempts, domain.ConnectionAttempt{Profile: profile.Name, Err: err})
	}

	n.transition(StateExhausted, len(profiles))
	return nil, connErr
}

func (n *Negotiator) transition(s State, i int) {
	if n.observe != nil {
		n.observe(s, i)
	}
}
