// internal/pkg/session/store.go
package session

import (
	"context"
	"errors"
	"fmt"

	xerrors "swiftel-client/internal/pkg/errors"
)

// DefaultKey is the logical key both tiers store the token under.
const DefaultKey = "token"

// Store keeps the session token in one of two tiers: durable ("remember
// me") or tab-scoped. At most one tier holds the token after a Save.
type Store struct {
	durable Tier
	tab     Tier
	key     string
}

func NewStore(durable, tab Tier, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{durable: durable, tab: tab, key: key}
}

// Save writes token to the durable tier when durable is true, otherwise to
// the tab-scoped tier, and drops any token left in the other tier.
func (s *Store) Save(ctx context.Context, token string, durable bool) error {
	if token == "" {
		return fmt.Errorf("save token: %w", xerrors.ErrInvalidInput)
	}

	target, other := s.tab, s.durable
	if durable {
		target, other = s.durable, s.tab
	}

	if err := target.Set(ctx, s.key, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	if err := other.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("save token: drop stale copy: %w", err)
	}
	return nil
}

// Load checks the durable tier first, then the tab-scoped one; the first
// hit wins. ok is false when neither tier holds a token.
func (s *Store) Load(ctx context.Context) (token string, ok bool, err error) {
	var errs []error
	for _, tier := range []Tier{s.durable, s.tab} {
		v, getErr := tier.Get(ctx, s.key)
		switch {
		case getErr == nil && v != "":
			return v, true, nil
		case getErr == nil, errors.Is(getErr, xerrors.ErrNoToken):
			continue
		default:
			errs = append(errs, getErr)
		}
	}
	return "", false, errors.Join(errs...)
}

// Clear removes the token from both tiers. Clearing an absent token is not
// an error.
func (s *Store) Clear(ctx context.Context) error {
	return errors.Join(
		s.durable.Delete(ctx, s.key),
		s.tab.Delete(ctx, s.key),
	)
}
