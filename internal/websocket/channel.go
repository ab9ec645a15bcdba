// internal/websocket/channel.go
package websocket

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = time.Minute
	handshakeBodyMax      = 256
)

// TokenSource returns the current session token, or "" when signed out.
type TokenSource func() string

type ChannelConfig struct {
	// URL is the ws(s) endpoint without the token query.
	URL   string
	Token TokenSource
	// OnSignal runs on the channel goroutine for every inbound message.
	OnSignal func()

	Reconnect      bool
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	PingPeriod     time.Duration
	PongWait       time.Duration

	Dialer *websocket.Dialer
	Logger *zap.Logger
}

// Channel is the notification push channel to the backend. Messages carry
// no meaning for the client: each one is a hint that notifications changed.
type Channel struct {
	cfg    ChannelConfig
	logger *zap.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	connected bool
}

func NewChannel(cfg ChannelConfig) *Channel {
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = pongWait
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = (cfg.PongWait * 9) / 10
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.OnSignal == nil {
		cfg.OnSignal = func() {}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{cfg: cfg, logger: logger}
}

// WSBaseFromAPI derives the push endpoint from the REST base URL by
// swapping the http scheme for ws.
func WSBaseFromAPI(apiBase string) string {
	if strings.HasPrefix(apiBase, "http") {
		return "ws" + strings.TrimPrefix(apiBase, "http")
	}
	return apiBase
}

// DialURL appends the token query to base.
func DialURL(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("push channel url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Open starts the channel if a session token is available. Opening an
// already running channel is a no-op.
func (c *Channel) Open(ctx context.Context) error {
	if c.cfg.Token() == "" {
		return ErrNoToken
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel, c.done = cancel, done

	go func() {
		defer close(done)
		c.run(runCtx)
		c.mu.Lock()
		if c.done == done {
			c.cancel, c.done = nil, nil
		}
		c.mu.Unlock()
		cancel()
	}()
	return nil
}

// Close stops the channel and waits for its goroutine. Safe to call when
// not open.
func (c *Channel) Close() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the channel goroutine is alive.
func (c *Channel) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

// Connected reports whether a socket is currently established.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Channel) run(ctx context.Context) {
	delay := c.cfg.InitialBackoff

	for {
		token := c.cfg.Token()
		if token == "" {
			c.logger.Info("push channel stopped: no session")
			return
		}

		wasConnected, err := c.connectAndServe(ctx, token)
		if ctx.Err() != nil {
			return
		}
		if !c.cfg.Reconnect {
			c.logger.Info("push channel ended", zap.Error(err))
			return
		}
		if wasConnected {
			delay = c.cfg.InitialBackoff
		}

		var hsErr *HandshakeError
		if errors.As(err, &hsErr) {
			c.logger.Warn("push channel rejected, retrying",
				zap.Int("status_code", hsErr.StatusCode),
				zap.Duration("backoff", delay),
			)
		} else {
			c.logger.Warn("push channel lost, reconnecting",
				zap.Error(err),
				zap.Duration("backoff", delay),
			)
		}

		timer := time.NewTimer(jitter(delay))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		delay *= 2
		if delay > c.cfg.MaxBackoff {
			delay = c.cfg.MaxBackoff
		}
	}
}

// jitter adds 0-50% random jitter to d.
func jitter(d time.Duration) time.Duration {
	max := int64(d / 2)
	if max <= 0 {
		return d
	}
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		return d
	}
	return d + time.Duration(n.Int64())
}

func (c *Channel) connectAndServe(ctx context.Context, token string) (bool, error) {
	target, err := DialURL(c.cfg.URL, token)
	if err != nil {
		return false, err
	}

	conn, resp, err := c.cfg.Dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, handshakeBodyMax))
				return false, &HandshakeError{StatusCode: resp.StatusCode, Body: string(body)}
			}
		}
		return false, fmt.Errorf("dial: %w", err)
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	defer func() {
		conn.Close()
		c.setConnected(false)
	}()
	c.setConnected(true)
	c.logger.Info("push channel connected", zap.String("url", c.cfg.URL))

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go c.pingLoop(pingCtx, conn)

	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return true, fmt.Errorf("read: %w", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		c.cfg.OnSignal()
	}
}

func (c *Channel) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("push channel ping failed", zap.Error(err))
				return
			}
		}
	}
}

func (c *Channel) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
