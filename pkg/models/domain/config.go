package domain

import "fmt"

// ConnectionProfile is one candidate set of SSH negotiation parameters.
type ConnectionProfile struct {
	Name              string   `mapstructure:"name"`
	KeyExchanges      []string `mapstructure:"kex"`
	Ciphers           []string `mapstructure:"ciphers"`
	HostKeyAlgorithms []string `mapstructure:"host_key_algorithms"`
	MACs              []string `mapstructure:"macs"`
}

func (p ConnectionProfile) String() string {
	return fmt.Sprintf("%s (kex=%v ciphers=%v hostkeys=%v macs=%v)",
		p.Name, p.KeyExchanges, p.Ciphers, p.HostKeyAlgorithms, p.MACs)
}

// DefaultProfiles lists the broad modern set first, then a narrow legacy fallback.
// No minimum security floor is enforced here; ordering is the caller's policy.
func DefaultProfiles() []ConnectionProfile {
	return []ConnectionProfile{
		{
			Name:              "modern",
			KeyExchanges:      []string{"diffie-hellman-group14-sha256", "diffie-hellman-group16-sha512"},
			Ciphers:           []string{"aes128-ctr", "aes192-ctr", "aes256-ctr"},
			HostKeyAlgorithms: []string{"rsa-sha2-256", "rsa-sha2-512", "ssh-rsa", "ssh-ed25519"},
			MACs:              []string{"hmac-sha2-256", "hmac-sha2-512"},
		},
		{
			Name:              "legacy",
			KeyExchanges:      []string{"diffie-hellman-group14-sha256"},
			Ciphers:           []string{"aes128-ctr"},
			HostKeyAlgorithms: []string{"ssh-rsa"},
			MACs:              []string{"hmac-sha2-256"},
		},
	}
}

// ConnectionDescriptor is everything needed to open a session to the remote store.
// It is treated as immutable for the duration of one invocation.
type ConnectionDescriptor struct {
	Host       string
	User       string
	PrivateKey []byte
	Passphrase []byte
	Profiles   []ConnectionProfile
}

// EffectiveProfiles returns the descriptor's profiles, or the defaults when none are set.
func (d ConnectionDescriptor) EffectiveProfiles() []ConnectionProfile {
	if len(d.Profiles) == 0 {
		return DefaultProfiles()
	}
	return d.Profiles
}
