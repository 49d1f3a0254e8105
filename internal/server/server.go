// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/ayush-codes-ar/SRM-SWAP/internal/auth"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/chat"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/config"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/health"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/issue"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/item"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/logging"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/metrics"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/ratelimit"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/rating"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/realtime"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/retry"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/security"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/trade"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/user"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/validation"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg          *config.Config
	users        user.Store
	items        *item.Service
	trades       *trade.Service
	chats        *chat.Service
	issues       *issue.Service
	ratings      *rating.Service
	verifier     *auth.Verifier
	realtimeHub  *realtime.Hub
	rateLimiter  *ratelimit.Limiter
	checks       *health.Registry
	db           *sql.DB // nil if using in-memory
	router       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger
	cancelRunCtx context.CancelFunc // cancels background goroutines started in Run

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
	}

	for _, opt := range opts {
		opt(s)
	}

	var (
		itemStore   item.Store
		tradeStore  trade.Store
		chatStore   chat.Store
		issueStore  issue.Store
		ratingStore rating.Store
	)

	// Initialize storage (Postgres if DATABASE_URL set, otherwise in-memory)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		// The database may still be starting; retry the first ping.
		pingCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err = retry.Do(pingCtx, 4, 500*time.Millisecond, func() error {
			return db.PingContext(pingCtx)
		})
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		s.users = user.NewPostgresStore(db)
		itemStore = item.NewPostgresStore(db)
		tradeStore = trade.NewPostgresStore(db)
		chatStore = chat.NewPostgresStore(db)
		issueStore = issue.NewPostgresStore(db)
		ratingStore = rating.NewPostgresStore(db)
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))
	} else {
		s.users = user.NewMemoryStore()
		memItems := item.NewMemoryStore()
		itemStore = memItems
		tradeStore = trade.NewMemoryStore(memItems)
		chatStore = chat.NewMemoryStore()
		issueStore = issue.NewMemoryStore()
		ratingStore = rating.NewMemoryStore()
		s.logger.Info("using in-memory storage (data will not persist)")
	}

	// Realtime hub first; chat and trades broadcast through it
	s.realtimeHub = realtime.NewHub(s.logger)

	s.items = item.NewService(itemStore)
	s.chats = chat.NewService(chatStore).
		WithDirectory(&userDirectory{s.users}).
		WithBroadcaster(s.realtimeHub).
		WithRooms(&tradeRoomDirectory{tradeStore})
	s.realtimeHub.WithSender(s.chats)
	s.trades = trade.NewService(tradeStore, itemStore).
		WithUsers(s.users).
		WithMessages(s.chats).
		WithEvents(&tradeEventEmitter{s.realtimeHub})
	s.issues = issue.NewService(issueStore, s.trades)
	s.ratings = rating.NewService(ratingStore, tradeStore).
		WithTrustLedger(s.users)

	s.checks = health.NewRegistry()
	if s.db != nil {
		s.checks.Register("database", func(ctx context.Context) error {
			return s.db.PingContext(ctx)
		})
	}
	s.checks.Register("realtime", func(ctx context.Context) error {
		stats := s.realtimeHub.Stats()
		if n, ok := stats["connectedClients"].(int); ok && n >= realtime.MaxClients {
			return errors.New("websocket connection limit reached")
		}
		return nil
	})

	s.verifier = auth.NewVerifier(cfg.JWTSecret)
	s.logger.Info("bearer token authentication enabled")
	s.logger.Info("realtime trade rooms enabled")

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Adapters
// -----------------------------------------------------------------------------

// userDirectory resolves display names for chat senders.
type userDirectory struct {
	users user.Store
}

func (d *userDirectory) FullName(ctx context.Context, userID string) (string, error) {
	u, err := d.users.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.FullName, nil
}

// tradeRoomDirectory answers chat's trade-existence checks from the
// trade store.
type tradeRoomDirectory struct {
	trades trade.Store
}

func (d *tradeRoomDirectory) Exists(ctx context.Context, tradeID string) (bool, error) {
	if _, err := d.trades.Get(ctx, tradeID); err != nil {
		if errors.Is(err, trade.ErrTradeNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// tradeEventEmitter adapts the realtime hub to the trade service's
// Events interface.
type tradeEventEmitter struct {
	hub *realtime.Hub
}

func (e *tradeEventEmitter) TradeUpdated(tradeID string, snap *trade.Snapshot) {
	e.hub.TradeUpdated(tradeID, snap)
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS
	origins := strings.Split(s.cfg.AllowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	s.router.Use(security.CORSMiddleware(origins))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	limitCfg := ratelimit.DefaultConfig()
	if s.cfg.RateLimitRPS > 0 {
		limitCfg.RequestsPerMinute = s.cfg.RateLimitRPS * 60
	}
	s.rateLimiter = ratelimit.New(limitCfg)
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// WebSocket for trade rooms
	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	s.router.GET("/api", s.infoHandler)

	itemHandler := item.NewHandler(s.items)
	tradeHandler := trade.NewHandler(s.trades)
	issueHandler := issue.NewHandler(s.issues)
	ratingHandler := rating.NewHandler(s.ratings)
	userHandler := user.NewHandler(s.users)

	api := s.router.Group("/api")

	// PUBLIC ROUTES (browse listings, read reviews)
	itemHandler.RegisterRoutes(api)
	ratingHandler.RegisterRoutes(api)

	// PROTECTED ROUTES (require bearer token)
	protected := api.Group("")
	protected.Use(s.verifier.Middleware())
	{
		itemHandler.RegisterProtectedRoutes(protected)
		tradeHandler.RegisterProtectedRoutes(protected)
		issueHandler.RegisterProtectedRoutes(protected)
		ratingHandler.RegisterProtectedRoutes(protected)
		userHandler.RegisterProtectedRoutes(protected)
	}

	// SUPERVISOR ROUTES (members and admins)
	supervisor := api.Group("")
	supervisor.Use(s.verifier.Middleware(), auth.RequireSupervisor())
	{
		tradeHandler.RegisterSupervisorRoutes(supervisor)
		issueHandler.RegisterSupervisorRoutes(supervisor)
	}

	// ADMIN ROUTES (listing moderation)
	admin := api.Group("")
	admin.Use(s.verifier.Middleware(), auth.RequireAdmin())
	{
		itemHandler.RegisterAdminRoutes(admin)
	}
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Checks    []health.Status `json:"checks,omitempty"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy, checks := s.checks.Run(ctx)

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "SRM Swap",
		"description": "Campus peer-to-peer marketplace with supervised trades",
		"version":     "0.1.0",
	})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port, "env", s.cfg.Env)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	go s.realtimeHub.Run(runCtx)

	// Feed DB pool stats to Prometheus
	if s.db != nil {
		metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for all background goroutines (hub, collectors)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	// Close database connection pool
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Users returns the user store; cmd/server uses it to seed demo data.
func (s *Server) Users() user.Store {
	return s.users
}

// Verifier returns the token verifier; cmd/server uses it to mint demo
// tokens in development mode.
func (s *Server) Verifier() *auth.Verifier {
	return s.verifier
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
