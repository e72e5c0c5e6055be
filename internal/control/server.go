package control

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/oscctl/internal/auth"
	"github.com/danmuck/oscctl/internal/logging"
	"github.com/danmuck/oscctl/internal/observability"
	"github.com/danmuck/oscctl/internal/router"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DefaultName            = "oscctl"
	DefaultAddr            = ":8080"
	DefaultShutdownTimeout = 5 * time.Second
	version                = "0.1.0"
)

type Config struct {
	Name            string
	Addr            string
	CorsOrigins     []string
	ShutdownTimeout time.Duration
	// Token, when set, is required as a bearer token on every route that
	// sends OSC or changes state.
	Token string
}

func (c Config) WithDefaults() Config {
	if strings.TrimSpace(c.Name) == "" {
		c.Name = DefaultName
	}
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = DefaultAddr
	}
	if len(c.CorsOrigins) == 0 {
		c.CorsOrigins = []string{"http://localhost:3000"}
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	return c
}

type Server struct {
	cfg     Config
	router  *router.Router
	engine  *gin.Engine
	guard   auth.Validator
	started time.Time
}

func New(cfg Config, r *router.Router) *Server {
	cfg = cfg.WithDefaults()
	observability.RegisterMetrics()

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(observability.RequestLogger(observability.InitLogger(cfg.Name)))
	engine.Use(observability.RequestMetricsMiddleware(cfg.Name))
	engine.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CorsOrigins,
		AllowMethods: []string{"GET", "POST", "PUT"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = engine.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		cfg:     cfg,
		router:  r,
		engine:  engine,
		started: time.Now(),
	}
	if token := strings.TrimSpace(cfg.Token); token != "" {
		s.guard = auth.StaticToken{Token: token}
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Addr() string {
	return s.cfg.Addr
}

// Serve listens until ctx is cancelled, then drains in-flight requests for
// up to ShutdownTimeout.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logging.Infof("control.Server.Serve listening addr=%s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warnf("control.Server.Serve shutdown err=%v", err)
		return err
	}
	logging.Infof("control.Server.Serve stopped addr=%s", s.cfg.Addr)
	return nil
}

func (s *Server) registerRoutes() {
	r := s.engine

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"service": s.cfg.Name,
			"version": version,
		})
	})
	r.GET("/ready", func(c *gin.Context) {
		state := s.router.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"ready":     true,
			"connected": state.Connected,
			"uptime":    time.Since(s.started).String(),
			"service":   s.cfg.Name,
			"version":   version,
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.read(r, "/state", "snapshot", s.handleState)
	s.read(r, "/state/stream", "subscribe", s.handleStateStream)
	s.read(r, "/catalog", "catalog", s.handleCatalog)
	s.read(r, "/settings", "load_settings", s.handleGetSettings)

	layers := r.Group("/layers")
	s.write(layers, http.MethodPost, "/select", "select_layer", s.handleSelectLayer)
	s.write(layers, http.MethodPost, "/add", "add_layer", s.handleAddLayer)
	s.write(layers, http.MethodPost, "/remove", "remove_layer", s.handleRemoveLayer)
	s.write(layers, http.MethodPost, "/:layer/trigger-all", "trigger_all", s.handleTriggerAll)

	commands := r.Group("/commands")
	s.write(commands, http.MethodPost, "/dispatch", "dispatch", s.handleDispatch)
	s.write(commands, http.MethodPost, "/assign", "assign", s.handleAssign)

	s.write(r, http.MethodPost, "/opacity", "update_opacity", s.handleOpacity)
	s.write(r, http.MethodPost, "/opacity/commit", "commit_opacity", s.handleCommitOpacity)
	s.write(r, http.MethodPost, "/diagnostic", "diagnostic", s.handleDiagnostic)
	s.write(r, http.MethodPut, "/settings", "save_settings", s.handlePutSettings)
}

func (s *Server) read(g gin.IRoutes, path, op string, h gin.HandlerFunc) {
	g.GET(path, observability.Operation(op), h)
}

// write registers a route that sends OSC or changes state; it sits behind
// the token guard.
func (s *Server) write(g gin.IRoutes, method, path, op string, h gin.HandlerFunc) {
	g.Handle(method, path, observability.Operation(op), s.requireToken(), h)
}

// requireToken rejects requests without the configured bearer token. With
// no token configured every request passes.
func (s *Server) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.guard == nil {
			c.Next()
			return
		}
		if err := auth.Check(s.guard, c.GetHeader("Authorization")); err != nil {
			observability.Deny(c, err)
			logging.Warnf("control.Server.requireToken denied path=%s err=%v", c.FullPath(), err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}
