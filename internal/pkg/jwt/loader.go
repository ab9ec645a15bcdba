package jwt

import (
	"fmt"
	"time"
)

type Config struct {
	// PublicKeyPath enables RS256 signature checks when set.
	PublicKeyPath string
	Leeway        time.Duration
}

// LoadDecoder builds a Decoder from configuration.
func LoadDecoder(cfg Config) (*Decoder, error) {
	opts := []Option{WithLeeway(cfg.Leeway)}

	if cfg.PublicKeyPath != "" {
		pub, err := LoadRSAPublicKeyFromPEM(cfg.PublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load public key from %s: %w", cfg.PublicKeyPath, err)
		}
		opts = append(opts, WithPublicKey(pub))
	}

	return NewDecoder(opts...), nil
}
