// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"swiftel-client/internal/api"
	"swiftel-client/internal/config"
	"swiftel-client/internal/db"
	wstypes "swiftel-client/internal/domain/websocket"
	authHandler "swiftel-client/internal/handlers/auth"
	notifyH "swiftel-client/internal/handlers/notification"
	requestHandler "swiftel-client/internal/handlers/request"
	shellHandler "swiftel-client/internal/handlers/shell"
	userHandler "swiftel-client/internal/handlers/user"
	wsHandler "swiftel-client/internal/handlers/websocket"
	"swiftel-client/internal/middleware"
	"swiftel-client/internal/pkg/cache"
	"swiftel-client/internal/pkg/jwt"
	"swiftel-client/internal/pkg/session"
	authUsecase "swiftel-client/internal/service/auth"
	notifyUsecase "swiftel-client/internal/service/notification"
	requestUsecase "swiftel-client/internal/service/request"
	userUsecase "swiftel-client/internal/service/user"
	"swiftel-client/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Option overrides a piece of the wiring, mostly for tests.
type Option func(*Server)

// WithDurableTier replaces the configured durable session tier.
func WithDurableTier(tier session.Tier) Option {
	return func(s *Server) { s.durable = tier }
}

// WithDecoder replaces the decoder built from the JWT configuration.
func WithDecoder(dec session.TokenDecoder) Option {
	return func(s *Server) { s.decoder = dec }
}

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger

	durable session.Tier
	decoder session.TokenDecoder
	redis   redis.UniversalClient

	client   *api.Client
	cache    *cache.Cache
	sessions *session.Manager
	hub      *websocket.Hub
	channel  *websocket.Channel
	unwatch  func()

	// channelToken is the token the push channel was opened with
	channelMu    sync.Mutex
	channelToken string

	ctx    context.Context
	cancel context.CancelFunc
	http   *http.Server

	lifeMu  sync.Mutex
	started bool
	stopped bool
	wg      sync.WaitGroup
}

// NewServer wires the shell. Nothing runs until Start or Run.
func NewServer(cfg config.AppConfig, logger *zap.Logger, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if err := s.setupSession(); err != nil {
		s.cancel()
		return nil, err
	}
	s.setupRouter()
	s.http = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) setupSession() error {
	// ----- Durable tier -----
	if s.durable == nil {
		tier, err := s.durableTier()
		if err != nil {
			return err
		}
		s.durable = tier
	}

	// ----- JWT -----
	if s.decoder == nil {
		dec, err := jwt.LoadDecoder(s.cfg.JWT)
		if err != nil {
			return fmt.Errorf("failed to load JWT decoder: %w", err)
		}
		s.decoder = dec
	}

	// ----- REST client & query cache -----
	client, err := api.NewClient(api.Config{
		BaseURL: s.cfg.APIBaseURL,
		Timeout: s.cfg.APITimeout,
		Logger:  s.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to build API client: %w", err)
	}
	s.client = client
	s.cache = cache.New(s.cfg.CacheSize, s.cfg.CacheStale)

	// ----- Session manager -----
	s.sessions = session.NewManager(session.ManagerOptions{
		Store:       session.NewStore(s.durable, session.NewMemoryTier(), s.cfg.TokenKey),
		Decoder:     s.decoder,
		Credentials: client,
		Cache:       s.cache,
		Logger:      s.logger,
	})

	// ----- Local UI hub & push channel -----
	s.hub = websocket.NewHub(s.sessionEvent, s.logger)
	s.channel = websocket.NewChannel(websocket.ChannelConfig{
		URL:        s.cfg.WSURL,
		Token:      s.sessions.Token,
		OnSignal:   websocket.RefetchOnSignal(s.sessions, s.cache, s.hub, s.logger),
		Reconnect:  s.cfg.WSReconnect,
		MaxBackoff: s.cfg.WSMaxBackoff,
		Logger:     s.logger,
	})
	s.unwatch = s.sessions.Watch(s.onSessionChange)

	return nil
}

func (s *Server) durableTier() (session.Tier, error) {
	switch s.cfg.DurableBackend {
	case config.DurableRedis:
		client, err := db.NewRedis(s.ctx, db.RedisConfig{
			Addresses: []string{s.cfg.RedisAddr},
			Password:  s.cfg.RedisPass,
			PoolSize:  4,
		})
		if err != nil {
			return nil, err
		}
		s.redis = client
		s.logger.Info("durable session tier: redis", zap.String("addr", s.cfg.RedisAddr))
		return session.NewRedisTier(client, s.cfg.RedisPrefix, s.cfg.RedisTTL), nil
	default:
		dir := filepath.Join(s.cfg.StateDir, "session")
		tier, err := session.NewFileTier(dir, s.cfg.StoreKey)
		if err != nil {
			return nil, err
		}
		s.logger.Info("durable session tier: file",
			zap.String("dir", dir),
			zap.Bool("sealed", len(s.cfg.StoreKey) > 0),
		)
		return tier, nil
	}
}

// onSessionChange keeps the push channel in step with the session and
// tells the UI tabs. A new token, including a login on top of another
// session, gets a new socket.
func (s *Server) onSessionChange(st session.State) {
	token := ""
	if st.Authenticated() {
		token = s.sessions.Token()
	}

	s.channelMu.Lock()
	if token != s.channelToken {
		s.channel.Close()
		s.channelToken = ""
	}
	if token != "" {
		if err := s.channel.Open(s.ctx); err != nil && !errors.Is(err, websocket.ErrNoToken) {
			s.logger.Warn("push channel did not open", zap.Error(err))
		} else if err == nil {
			s.channelToken = token
		}
	}
	s.channelMu.Unlock()

	s.hub.SessionChanged(eventFor(st))
}

func (s *Server) sessionEvent() wstypes.SessionEventData {
	return eventFor(s.sessions.State())
}

func eventFor(st session.State) wstypes.SessionEventData {
	if st.Identity == nil {
		return wstypes.SessionEventData{}
	}
	return wstypes.SessionEventData{
		Authenticated: true,
		Username:      st.Identity.Username,
		Role:          st.Identity.Role.String(),
	}
}

func (s *Server) setupRouter() {
	// ----- Services (Usecases) -----
	authService := authUsecase.NewAuthService(s.client, s.sessions, s.logger)
	notifService := notifyUsecase.NewNotificationService(s.client, s.cache, s.hub)
	requestService := requestUsecase.NewRequestService(s.client, s.cache)
	userService := userUsecase.NewUserService(s.client, s.cache)

	// ----- Handlers -----
	handlers := &Handlers{
		AuthHandler:    authHandler.NewAuthHandler(authService, s.logger),
		NotifHandler:   notifyH.NewNotificationHandler(notifService),
		RequestHandler: requestHandler.NewRequestHandler(requestService),
		UserHandler:    userHandler.NewUserHandler(userService),
		ShellHandler:   shellHandler.NewShellHandler(s.sessions),
		WSHandler:      wsHandler.NewWebSocketHandler(s.hub, s.logger),
		Guard:          middleware.NewGuardMiddleware(s.sessions),
	}

	if !s.cfg.Dev {
		gin.SetMode(gin.ReleaseMode)
	}
	s.engine = gin.New()
	s.engine.Use(
		middleware.RecoveryMiddleware(s.logger),
		middleware.LoggingMiddleware(s.logger),
	)
	SetupRouter(s.engine, handlers)
}

// Handler exposes the engine, e.g. to httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Sessions returns the session manager.
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// Start runs the background parts of the shell: the UI hub and the boot
// attempt. It does not listen; see Run. Later calls, and calls after
// Shutdown, do nothing.
func (s *Server) Start() {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.hub.Run(s.ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.sessions.Boot(s.ctx)
	}()
}

// Run starts the shell and serves HTTP until Shutdown. It returns nil
// when Shutdown came first.
func (s *Server) Run() error {
	s.Start()
	s.logger.Info("swiftel shell listening",
		zap.String("addr", s.cfg.HTTPAddr),
		zap.String("api", s.cfg.APIBaseURL),
	)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP listener, the push channel and the hub. The
// stored session is left in place for the next start.
func (s *Server) Shutdown(ctx context.Context) error {
	s.lifeMu.Lock()
	if s.stopped {
		s.lifeMu.Unlock()
		return nil
	}
	s.stopped = true
	s.lifeMu.Unlock()

	err := s.http.Shutdown(ctx)

	s.unwatch()
	s.sessions.Dispose()
	s.channel.Close()
	s.cancel()
	s.wg.Wait()

	if s.redis != nil {
		if cerr := s.redis.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	return err
}
