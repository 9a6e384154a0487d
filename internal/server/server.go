// Package server serves courses, lessons and account pages over HTTP, with
// a websocket hub that pushes live reloads and session changes to browsers.
package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/sessions"

	"github.com/conneroisu/syllabus/internal/auth"
	"github.com/conneroisu/syllabus/internal/config"
	"github.com/conneroisu/syllabus/internal/content"
	"github.com/conneroisu/syllabus/internal/logging"
	"github.com/conneroisu/syllabus/internal/renderer"
	"github.com/conneroisu/syllabus/internal/validation"
)

// Server is the syllabus HTTP server.
type Server struct {
	config   *config.Config
	resolver *content.Resolver
	renderer *renderer.Renderer
	auth     *auth.Service
	store    sessions.Store
	hub      *Hub
	limiter  *RateLimiter
	logger   logging.Logger

	httpServer   *http.Server
	serverMutex  sync.RWMutex
	shutdownOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger.WithComponent("server")
		}
	}
}

// WithStore replaces the cookie store.
func WithStore(store sessions.Store) Option {
	return func(s *Server) {
		if store != nil {
			s.store = store
		}
	}
}

// New creates a server over the content resolver and the auth service.
func New(cfg *config.Config, resolver *content.Resolver, svc *auth.Service, opts ...Option) *Server {
	s := &Server{
		config:   cfg,
		resolver: resolver,
		auth:     svc,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = NewCookieStore(cfg.Session)
	}
	s.renderer = renderer.New(
		renderer.WithAssetDir(resolver.AssetDir()),
		renderer.WithLogger(s.logger),
	)
	s.hub = NewHub(s.logger)
	s.limiter = NewRateLimiter(cfg.Auth.RateLimit, s.logger)
	return s
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the routed handler with its middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /course", s.handleCourseList)
	mux.HandleFunc("GET /{course}", s.handleCourse)
	mux.HandleFunc("GET /{course}/{lesson}", s.handleLesson)
	mux.HandleFunc("GET /{course}/{dir}/{file}", s.handleAsset)

	// Every route that reaches the identity provider shares one limiter.
	limited := RateLimitMiddleware(s.limiter)
	submit := func(h http.HandlerFunc) http.Handler { return limited(h) }

	mux.HandleFunc("GET /login", s.handleLogin)
	mux.Handle("POST /login", submit(s.handleLoginSubmit))
	mux.HandleFunc("GET /verify", s.handleVerify)
	mux.Handle("POST /verify", submit(s.handleVerifySubmit))
	mux.HandleFunc("GET /reset", s.handleReset)
	mux.Handle("POST /reset", submit(s.handleResetSubmit))
	mux.HandleFunc("GET /auth", s.handleAction)
	mux.Handle("POST /auth", submit(s.handleActionSubmit))
	mux.HandleFunc("GET /profile", s.handleProfile)
	mux.Handle("POST /profile", submit(s.handleProfileSubmit))

	mux.Handle("POST /api/auth/{mode}", submit(s.handleAPIAuth))
	mux.HandleFunc("GET /api/session", s.handleAPISession)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	sc := SecurityConfigFromAppConfig(s.config)
	sc.Logger = s.logger
	return Chain(mux,
		RequestID(),
		Logging(s.logger),
		Recover(s.logger),
		SecurityMiddleware(sc),
	)
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	addr := s.config.Addr()

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	if s.config.Server.Open {
		go s.openBrowser(ctx, "http://"+addr+"/course")
	}
	go s.janitor(ctx, cleanupInterval)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Serving courses", "addr", addr, "root", s.config.Content.Root)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown closes every websocket and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")
		s.hub.CloseAll()

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()
		if server != nil {
			err = server.Shutdown(ctx)
		}
	})
	return err
}

// cleanupInterval is how often idle sessions and rate limit buckets are
// dropped.
const cleanupInterval = 5 * time.Minute

// janitor runs sweep every interval until ctx is cancelled.
func (s *Server) janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.sweep(ctx, now)
		}
	}
}

// sweep forgets sessions idle longer than the configured timeout and
// buckets of clients that stopped submitting.
func (s *Server) sweep(ctx context.Context, now time.Time) {
	idle := s.config.Session.IdleTimeout
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	sessions := s.auth.Sessions().Sweep(now.Add(-idle))
	buckets := s.limiter.Cleanup(now)
	if sessions > 0 || buckets > 0 {
		s.logger.Debug(ctx, "Dropped idle state", "sessions", sessions, "buckets", buckets)
	}
}

// Reload tells every browser that path changed.
func (s *Server) Reload(path string) {
	s.hub.Broadcast(UpdateMessage{Type: MessageReload, Target: path})
}

func (s *Server) liveReload() bool {
	return s.config.Development.HotReload && s.config.IsDevelopment()
}

func (s *Server) openBrowser(ctx context.Context, target string) {
	time.Sleep(100 * time.Millisecond)

	if err := validation.ValidateURL(target); err != nil {
		s.logger.Warn(ctx, err, "Browser open failed due to invalid URL")
		return
	}

	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", target).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", target).Start()
	case "darwin":
		err = exec.Command("open", target).Start()
	default:
		err = fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
	if err != nil {
		s.logger.Warn(ctx, err, "Failed to open browser")
	}
}

func hostOf(origin string) string {
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		return u.Host
	}
	return origin
}
