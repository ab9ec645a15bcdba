// internal/pkg/session/manager.go
package session

import (
	"context"
	"fmt"
	"sync"

	"swiftel-client/internal/domain/auth"
	xerrors "swiftel-client/internal/pkg/errors"

	"go.uber.org/zap"
)

// TokenDecoder turns a bearer token into an identity.
type TokenDecoder interface {
	Decode(token string) (auth.Identity, error)
}

// Credentials is the HTTP client's default authorization header.
type Credentials interface {
	SetBearer(token string)
	ClearBearer()
}

// CacheResetter drops every cached server response.
type CacheResetter interface {
	Clear()
}

type ManagerOptions struct {
	Store       *Store
	Decoder     TokenDecoder
	Credentials Credentials
	Cache       CacheResetter
	Logger      *zap.Logger
}

// Manager owns the session state. It is the only writer: boot, Login and
// Logout change the state, everything else reads copies.
type Manager struct {
	store   *Store
	decoder TokenDecoder
	creds   Credentials
	cache   CacheResetter
	logger  *zap.Logger

	// writeMu orders boot, Login and Logout from the store write through
	// notify, so watchers see changes in the order they happened.
	writeMu sync.Mutex

	mu       sync.RWMutex
	state    State
	token    string
	disposed bool

	bootOnce sync.Once
	ready    chan struct{}

	watchMu  sync.Mutex
	watchers map[int]func(State)
	nextID   int
}

// NewManager returns a manager in the Loading state. Call Boot to resolve it.
func NewManager(opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:    opts.Store,
		decoder:  opts.Decoder,
		creds:    opts.Credentials,
		cache:    opts.Cache,
		logger:   logger,
		state:    State{Readiness: Loading},
		ready:    make(chan struct{}),
		watchers: make(map[int]func(State)),
	}
}

// Boot performs the single load+decode attempt. Later calls are no-ops.
// A missing, unreadable or malformed token ends in an anonymous Ready state
// and the stored token is purged; nothing is returned to the caller.
func (m *Manager) Boot(ctx context.Context) {
	m.bootOnce.Do(func() { m.boot(ctx) })
}

func (m *Manager) boot(ctx context.Context) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	var (
		identity *auth.Identity
		token    string
	)

	stored, ok, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn("session store unreadable on boot", zap.Error(err))
	}

	if ok {
		id, decErr := m.decoder.Decode(stored)
		if decErr == nil {
			identity, token = &id, stored
		} else {
			m.logger.Info("discarding stored session token", zap.Error(decErr))
		}
	}

	if identity == nil && (ok || err != nil) {
		if clearErr := m.store.Clear(ctx); clearErr != nil {
			m.logger.Warn("failed to purge stored session token", zap.Error(clearErr))
		}
	}

	m.mu.Lock()
	m.state.Identity = identity
	m.state.Readiness = Ready
	m.token = token
	if identity != nil {
		m.creds.SetBearer(token)
	}
	snapshot := m.state.clone()
	m.mu.Unlock()

	close(m.ready)

	if identity != nil {
		m.logger.Info("session restored",
			zap.Int64("user_id", identity.ID),
			zap.String("username", identity.Username),
			zap.String("role", identity.Role.String()),
		)
	}
	m.notify(snapshot)
}

// Login installs a token the backend just issued. A token that cannot be
// decoded is a contract violation with the backend: the error is returned
// and neither the state nor the store is touched. Replacing the session of
// another user drops every cached response.
func (m *Manager) Login(ctx context.Context, token string, rememberMe bool) (auth.Identity, error) {
	if m.isDisposed() {
		return auth.Identity{}, xerrors.ErrDisposed
	}
	m.Boot(ctx)

	id, err := m.decoder.Decode(token)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("login: backend issued an unusable token: %w", err)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := m.store.Save(ctx, token, rememberMe); err != nil {
		return auth.Identity{}, fmt.Errorf("login: %w", err)
	}

	m.mu.Lock()
	prev := m.state.Identity
	m.state.Identity = &id
	m.token = token
	m.creds.SetBearer(token)
	snapshot := m.state.clone()
	m.mu.Unlock()

	if prev != nil && prev.ID != id.ID {
		m.cache.Clear()
		m.logger.Info("session replaced by another user",
			zap.Int64("previous_user_id", prev.ID),
		)
	}

	m.logger.Info("logged in",
		zap.Int64("user_id", id.ID),
		zap.String("username", id.Username),
		zap.String("role", id.Role.String()),
		zap.Bool("remember_me", rememberMe),
	)
	m.notify(snapshot)
	return id, nil
}

// Logout forgets the session everywhere: both store tiers, the in-memory
// identity, the HTTP default header and every cached response. The state
// is cleared even when the store fails; the store error is returned.
func (m *Manager) Logout(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	storeErr := m.store.Clear(ctx)

	m.mu.Lock()
	m.state.Identity = nil
	m.token = ""
	m.creds.ClearBearer()
	snapshot := m.state.clone()
	m.mu.Unlock()

	m.cache.Clear()

	m.logger.Info("logged out")
	m.notify(snapshot)

	if storeErr != nil {
		return fmt.Errorf("logout: %w", storeErr)
	}
	return nil
}

// State returns a copy of the current session state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

// Identity returns the current identity, if any.
func (m *Manager) Identity() (auth.Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state.Identity == nil {
		return auth.Identity{}, false
	}
	return *m.state.Identity, true
}

// Token returns the active bearer token or "".
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *Manager) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Identity != nil
}

// Ready is closed once boot has completed.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// Watch registers fn to run after every state change, on the goroutine
// that made the change. Changes are delivered one at a time and in order;
// fn must not call Login or Logout. The returned func removes it.
func (m *Manager) Watch(fn func(State)) (unwatch func()) {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = fn
	return func() {
		m.watchMu.Lock()
		defer m.watchMu.Unlock()
		delete(m.watchers, id)
	}
}

// Dispose ends the manager's lifecycle. Watchers are dropped and Login
// fails with ErrDisposed afterwards.
func (m *Manager) Dispose() {
	m.mu.Lock()
	m.disposed = true
	m.mu.Unlock()

	m.watchMu.Lock()
	m.watchers = make(map[int]func(State))
	m.watchMu.Unlock()
}

func (m *Manager) isDisposed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.disposed
}

func (m *Manager) notify(s State) {
	m.watchMu.Lock()
	fns := make([]func(State), 0, len(m.watchers))
	for _, fn := range m.watchers {
		fns = append(fns, fn)
	}
	m.watchMu.Unlock()

	for _, fn := range fns {
		fn(s.clone())
	}
}
