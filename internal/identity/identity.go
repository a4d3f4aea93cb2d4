package identity

import (
	"context"
	"errors"
	"sync"

	"github.com/scrimlol/scrim-backend/internal/rank"
)

var ErrUnknownUser = errors.New("unknown user")

// Profile is the identity snapshot the core captures at the moment of a send
// or join. It is never re-fetched mid-operation.
type Profile struct {
	UserID   string
	Username string
	Rank     rank.Tier
	Verified bool
}

// Provider is the external identity/profile service.
type Provider interface {
	Lookup(ctx context.Context, userID string) (Profile, error)
}

// Static is an in-memory Provider, used in dev and tests. Profiles are
// registered through Put (the HTTP layer exposes this as the identity
// stand-in endpoint).
type Static struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

func NewStatic(seed ...Profile) *Static {
	s := &Static{profiles: make(map[string]Profile, len(seed))}
	for _, p := range seed {
		s.profiles[p.UserID] = p
	}
	return s
}

func (s *Static) Put(p Profile) {
	s.mu.Lock()
	s.profiles[p.UserID] = p
	s.mu.Unlock()
}

func (s *Static) Lookup(_ context.Context, userID string) (Profile, error) {
	s.mu.RLock()
	p, ok := s.profiles[userID]
	s.mu.RUnlock()
	if !ok {
		return Profile{}, ErrUnknownUser
	}
	return p, nil
}
