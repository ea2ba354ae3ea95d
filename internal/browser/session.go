// Package browser manages the lifecycle of headless Chrome sessions used
// to drive the attendance portal. Each pipeline invocation owns exactly one
// session; the manager guarantees it is released on every exit path.
package browser

import (
	"context"
	"log/slog"
	"sync"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"

	apperrors "github.com/vijay-2155/VignanEcap/internal/errors"
	"github.com/vijay-2155/VignanEcap/internal/retry"
)

// State is the session lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateActive
	StateClosed
)

// Config controls how sessions are created.
type Config struct {
	Headless        bool
	DownloadDir     string
	AcquireAttempts int
	AcquireBackoff  time.Duration
}

// Session is an exclusively-owned handle to one automated browser instance.
// The zero value is an uninitialized session; Close on it is a no-op.
type Session struct {
	mu      sync.Mutex
	ctx     context.Context
	cancels []context.CancelFunc
	state   State
}

// Context returns the chromedp context all portal actions run against.
func (s *Session) Context() context.Context {
	if s == nil || s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	if s == nil {
		return StateUninitialized
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close tears down the browser process. It is idempotent and never panics;
// closing an uninitialized session is a no-op.
func (s *Session) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return
	}
	s.state = StateClosed
	// Cancel in reverse order: browser context before allocator.
	for i := len(s.cancels) - 1; i >= 0; i-- {
		s.cancels[i]()
	}
	s.cancels = nil
}

// Manager acquires and releases browser sessions.
type Manager struct {
	cfg    Config
	logger *slog.Logger
}

// NewManager creates a session manager.
func NewManager(cfg Config, logger *slog.Logger) *Manager {
	if cfg.AcquireAttempts <= 0 {
		cfg.AcquireAttempts = 3
	}
	if cfg.AcquireBackoff <= 0 {
		cfg.AcquireBackoff = 2 * time.Second
	}
	return &Manager{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "browser")),
	}
}

// Acquire starts a browser instance, retrying on initialization failure.
// The caller must Release the session on every exit path.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	var sess *Session

	err := retry.Do(ctx, m.cfg.AcquireAttempts, m.cfg.AcquireBackoff, func() error {
		var startErr error
		sess, startErr = m.start(ctx)
		if startErr != nil {
			m.logger.Warn("browser start failed", slog.String("error", startErr.Error()))
		}
		return startErr
	})
	if err != nil {
		return nil, apperrors.NewSessionInitError("failed to start browser", err)
	}

	m.logger.Debug("browser session acquired", slog.Bool("headless", m.cfg.Headless))
	return sess, nil
}

// Release closes the session, swallowing all errors. It is safe to call
// multiple times and must never mask the pipeline's real result.
func (m *Manager) Release(sess *Session) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("panic during browser release", slog.Any("panic", r))
		}
	}()
	if sess == nil {
		return
	}
	sess.Close()
	m.logger.Debug("browser session released")
}

func (m *Manager) start(ctx context.Context) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", m.cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	sess := &Session{
		ctx:     browserCtx,
		cancels: []context.CancelFunc{cancelAlloc, cancelBrowser},
		state:   StateActive,
	}

	// Starting the browser eagerly surfaces initialization errors here
	// instead of at the first navigation, and routes downloads into the
	// watched directory.
	actions := []chromedp.Action{
		cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(m.cfg.DownloadDir),
	}
	if err := chromedp.Run(browserCtx, actions...); err != nil {
		sess.Close()
		return nil, err
	}

	return sess, nil
}
