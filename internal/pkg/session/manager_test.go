package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"swiftel-client/internal/domain/auth"
	xerrors "swiftel-client/internal/pkg/errors"
	"swiftel-client/internal/pkg/jwt"
	"swiftel-client/internal/pkg/jwt/jwttest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCreds struct {
	mu     sync.Mutex
	bearer string
}

func (f *fakeCreds) SetBearer(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bearer = token
}

func (f *fakeCreds) ClearBearer() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bearer = ""
}

func (f *fakeCreds) Bearer() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bearer
}

type fakeCache struct{ n atomic.Int32 }

func (f *fakeCache) Clear() { f.n.Add(1) }

func (f *fakeCache) clears() int { return int(f.n.Load()) }

type harness struct {
	mgr     *Manager
	durable *MemoryTier
	tab     *MemoryTier
	creds   *fakeCreds
	cache   *fakeCache
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		durable: NewMemoryTier(),
		tab:     NewMemoryTier(),
		creds:   &fakeCreds{},
		cache:   &fakeCache{},
	}
	h.mgr = NewManager(ManagerOptions{
		Store:       NewStore(h.durable, h.tab, ""),
		Decoder:     jwt.NewDecoder(),
		Credentials: h.creds,
		Cache:       h.cache,
	})
	return h
}

func TestManager_StartsLoading(t *testing.T) {
	h := newHarness(t)

	st := h.mgr.State()
	assert.False(t, st.IsReady())
	assert.False(t, st.Authenticated())
	select {
	case <-h.mgr.Ready():
		t.Fatal("ready before boot")
	default:
	}
}

func TestManager_BootWithoutToken(t *testing.T) {
	h := newHarness(t)

	h.mgr.Boot(context.Background())

	st := h.mgr.State()
	assert.True(t, st.IsReady())
	assert.Nil(t, st.Identity)
	assert.Empty(t, h.creds.Bearer())
	<-h.mgr.Ready()
}

func TestManager_BootRestoresDurableToken(t *testing.T) {
	h := newHarness(t)
	token := jwttest.NewIssuer(t).Mint(t, 1, "alice", "employee")
	require.NoError(t, h.durable.Set(context.Background(), DefaultKey, token))

	h.mgr.Boot(context.Background())

	id, ok := h.mgr.Identity()
	require.True(t, ok)
	assert.Equal(t, auth.Identity{ID: 1, Username: "alice", Role: auth.RoleEmployee}, id)
	assert.Equal(t, token, h.creds.Bearer())
	assert.Equal(t, token, h.mgr.Token())
}

func TestManager_BootPurgesMalformedToken(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.tab.Set(ctx, DefaultKey, "garbage"))

	h.mgr.Boot(ctx)

	st := h.mgr.State()
	assert.True(t, st.IsReady())
	assert.False(t, st.Authenticated())
	_, err := h.tab.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, xerrors.ErrNoToken)
}

func TestManager_BootPurgesExpiredToken(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	token := jwttest.NewIssuer(t).WithTTL(-time.Hour).Mint(t, 1, "alice", "employee")
	require.NoError(t, h.durable.Set(ctx, DefaultKey, token))

	h.mgr.Boot(ctx)

	assert.False(t, h.mgr.Authenticated())
	_, err := h.durable.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, xerrors.ErrNoToken)
}

func TestManager_BootRunsOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.mgr.Boot(ctx)

	token := jwttest.NewIssuer(t).Mint(t, 1, "alice", "employee")
	require.NoError(t, h.durable.Set(ctx, DefaultKey, token))
	h.mgr.Boot(ctx)

	assert.False(t, h.mgr.Authenticated())
}

func TestManager_LoginRemembered(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.mgr.Boot(ctx)
	token := jwttest.NewIssuer(t).Mint(t, 2, "bob", "board_member")

	id, err := h.mgr.Login(ctx, token, true)

	require.NoError(t, err)
	assert.Equal(t, auth.RoleBoardMember, id.Role)
	assert.Equal(t, token, h.creds.Bearer())
	v, err := h.durable.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, token, v)
	_, err = h.tab.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, xerrors.ErrNoToken)
}

func TestManager_LoginTabScoped(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.mgr.Boot(ctx)
	token := jwttest.NewIssuer(t).Mint(t, 2, "bob", "board_member")

	_, err := h.mgr.Login(ctx, token, false)

	require.NoError(t, err)
	v, err := h.tab.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, token, v)
	_, err = h.durable.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, xerrors.ErrNoToken)
}

func TestManager_LoginMalformedLeavesStateAlone(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.mgr.Boot(ctx)
	good := jwttest.NewIssuer(t).Mint(t, 1, "alice", "employee")
	_, err := h.mgr.Login(ctx, good, true)
	require.NoError(t, err)

	_, err = h.mgr.Login(ctx, "not-a-token", false)

	require.ErrorIs(t, err, xerrors.ErrMalformedToken)
	id, ok := h.mgr.Identity()
	require.True(t, ok)
	assert.Equal(t, "alice", id.Username)
	assert.Equal(t, good, h.creds.Bearer())
	v, err := h.durable.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, good, v)
}

func TestManager_LoginBeforeBootBoots(t *testing.T) {
	h := newHarness(t)
	token := jwttest.NewIssuer(t).Mint(t, 1, "alice", "admin")

	_, err := h.mgr.Login(context.Background(), token, false)

	require.NoError(t, err)
	assert.True(t, h.mgr.State().IsReady())
	assert.True(t, h.mgr.Authenticated())
}

func TestManager_LoginAsAnotherUserDropsCache(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.mgr.Boot(ctx)
	issuer := jwttest.NewIssuer(t)

	_, err := h.mgr.Login(ctx, issuer.Mint(t, 1, "alice", "employee"), true)
	require.NoError(t, err)
	assert.Zero(t, h.cache.clears())

	// a fresh token for the same user keeps the cache
	_, err = h.mgr.Login(ctx, issuer.Mint(t, 1, "alice", "employee"), true)
	require.NoError(t, err)
	assert.Zero(t, h.cache.clears())

	bobToken := issuer.Mint(t, 2, "bob", "employee")
	id, err := h.mgr.Login(ctx, bobToken, false)
	require.NoError(t, err)

	assert.Equal(t, "bob", id.Username)
	assert.Equal(t, 1, h.cache.clears())
	assert.Equal(t, bobToken, h.creds.Bearer())
}

func TestManager_ConcurrentLoginLogoutStayConsistent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.mgr.Boot(ctx)
	issuer := jwttest.NewIssuer(t)
	tokens := []string{issuer.Mint(t, 1, "alice", "employee"), issuer.Mint(t, 2, "bob", "admin")}

	var (
		mu   sync.Mutex
		last State
	)
	h.mgr.Watch(func(s State) {
		mu.Lock()
		last = s
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if (i+j)%2 == 0 {
					_, err := h.mgr.Login(ctx, tokens[i%2], j%3 == 0)
					assert.NoError(t, err)
				} else {
					assert.NoError(t, h.mgr.Logout(ctx))
				}
			}
		}(i)
	}
	wg.Wait()

	_, stored, err := NewStore(h.durable, h.tab, "").Load(ctx)
	require.NoError(t, err)

	st := h.mgr.State()
	assert.Equal(t, st.Authenticated(), stored)
	assert.Equal(t, st.Authenticated(), h.creds.Bearer() != "")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, st.Authenticated(), last.Authenticated())
	if st.Identity != nil {
		assert.Equal(t, st.Identity.ID, last.Identity.ID)
	}
}

func TestManager_Logout(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.mgr.Boot(ctx)
	_, err := h.mgr.Login(ctx, jwttest.NewIssuer(t).Mint(t, 1, "alice", "employee"), true)
	require.NoError(t, err)

	require.NoError(t, h.mgr.Logout(ctx))

	assert.False(t, h.mgr.Authenticated())
	assert.Empty(t, h.mgr.Token())
	assert.Empty(t, h.creds.Bearer())
	assert.Equal(t, 1, h.cache.clears())
	_, ok, err := NewStore(h.durable, h.tab, "").Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, h.mgr.State().IsReady())
}

func TestManager_LogoutWhenAnonymous(t *testing.T) {
	h := newHarness(t)
	h.mgr.Boot(context.Background())

	require.NoError(t, h.mgr.Logout(context.Background()))
	assert.False(t, h.mgr.Authenticated())
}

func TestManager_LogoutStoreFailureStillClearsState(t *testing.T) {
	ctx := context.Background()
	creds, cache := &fakeCreds{}, &fakeCache{}
	mgr := NewManager(ManagerOptions{
		Store:       NewStore(brokenTier{err: errors.New("disk gone")}, NewMemoryTier(), ""),
		Decoder:     jwt.NewDecoder(),
		Credentials: creds,
		Cache:       cache,
	})
	mgr.Boot(ctx)

	err := mgr.Logout(ctx)

	assert.ErrorContains(t, err, "disk gone")
	assert.False(t, mgr.Authenticated())
	assert.Equal(t, 1, cache.clears())
}

func TestManager_StateIsACopy(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, err := h.mgr.Login(ctx, jwttest.NewIssuer(t).Mint(t, 1, "alice", "employee"), false)
	require.NoError(t, err)

	st := h.mgr.State()
	st.Identity.Role = auth.RoleAdmin

	id, _ := h.mgr.Identity()
	assert.Equal(t, auth.RoleEmployee, id.Role)
}

func TestManager_Watch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	var seen []bool
	unwatch := h.mgr.Watch(func(s State) { seen = append(seen, s.Authenticated()) })

	h.mgr.Boot(ctx)
	_, err := h.mgr.Login(ctx, jwttest.NewIssuer(t).Mint(t, 1, "alice", "employee"), false)
	require.NoError(t, err)
	require.NoError(t, h.mgr.Logout(ctx))

	unwatch()
	require.NoError(t, h.mgr.Logout(ctx))

	assert.Equal(t, []bool{false, true, false}, seen)
}

func TestManager_DisposeRejectsLogin(t *testing.T) {
	h := newHarness(t)
	h.mgr.Boot(context.Background())
	called := false
	h.mgr.Watch(func(State) { called = true })

	h.mgr.Dispose()

	_, err := h.mgr.Login(context.Background(), jwttest.NewIssuer(t).Mint(t, 1, "a", "admin"), false)
	assert.ErrorIs(t, err, xerrors.ErrDisposed)
	require.NoError(t, h.mgr.Logout(context.Background()))
	assert.False(t, called)
}

func TestManager_ConcurrentReaders(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.mgr.Boot(ctx)
	token := jwttest.NewIssuer(t).Mint(t, 1, "alice", "employee")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = h.mgr.State()
				_ = h.mgr.Token()
			}
		}()
	}
	for i := 0; i < 10; i++ {
		_, err := h.mgr.Login(ctx, token, i%2 == 0)
		require.NoError(t, err)
		require.NoError(t, h.mgr.Logout(ctx))
	}
	wg.Wait()
}
