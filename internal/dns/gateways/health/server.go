// Package health serves the HTTP status surface: JSON health and metrics
// documents, a reload acknowledgement and a Prometheus scrape endpoint.
package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haukened/hesiod-dns/internal/dns/common/log"
	"github.com/haukened/hesiod-dns/internal/dns/repos/zone"
)

// ServerState is the read-only view of the DNS server this surface reports on.
type ServerState interface {
	Zone() *zone.Zone
	QueryCount() uint64
	UptimeSeconds() uint64
	QueriesPerSecond() float64
}

// CacheStats reports answer cache effectiveness.
type CacheStats interface {
	Stats() (hits, misses uint64)
}

// Server is the health/metrics HTTP server.
type Server struct {
	addr     string
	state    ServerState
	cache    CacheStats
	logger   log.Logger
	registry *prometheus.Registry
	router   *gin.Engine

	mu       sync.Mutex
	listener net.Listener
	srv      *http.Server
}

// NewServer builds the router for st. cache may be nil.
func NewServer(addr string, st ServerState, cache CacheStats, logger log.Logger) *Server {
	s := &Server{
		addr:     addr,
		state:    st,
		cache:    cache,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	s.registerMetrics()
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	dns := r.Group("/dns")
	{
		dns.GET("/health", s.handleHealth)
		dns.GET("/metrics", s.handleMetrics)
		dns.POST("/reload", s.handleReload)
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	return r
}

func (s *Server) registerMetrics() {
	s.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "hesiod_queries_total",
			Help: "Total number of DNS datagrams received.",
		}, func() float64 { return float64(s.state.QueryCount()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "hesiod_zone_records",
			Help: "Number of records in the served zone.",
		}, func() float64 { return float64(s.state.Zone().RecordCount()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "hesiod_uptime_seconds",
			Help: "Seconds since the server started.",
		}, func() float64 { return float64(s.state.UptimeSeconds()) }),
	)
	if s.cache == nil {
		return
	}
	s.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "hesiod_answer_cache_hits_total",
			Help: "Resolutions served from the answer cache.",
		}, func() float64 { h, _ := s.cache.Stats(); return float64(h) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "hesiod_answer_cache_misses_total",
			Help: "Resolutions that missed the answer cache.",
		}, func() float64 { _, m := s.cache.Stats(); return float64(m) }),
	)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug(map[string]any{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		}, "HTTP request")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	z := s.state.Zone()
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"zone_records":   z.RecordCount(),
		"domain":         z.Domain(),
		"uptime_seconds": s.state.UptimeSeconds(),
	})
}

func (s *Server) handleMetrics(c *gin.Context) {
	var hits, misses uint64
	if s.cache != nil {
		hits, misses = s.cache.Stats()
	}
	c.JSON(http.StatusOK, gin.H{
		"query_count":        s.state.QueryCount(),
		"uptime_seconds":     s.state.UptimeSeconds(),
		"queries_per_second": s.state.QueriesPerSecond(),
		"zone_records":       s.state.Zone().RecordCount(),
		"cache_hits":         hits,
		"cache_misses":       misses,
	})
}

// handleReload acknowledges the request. The zone is fixed for the life of the process.
func (s *Server) handleReload(c *gin.Context) {
	s.logger.Info(map[string]any{"client": c.ClientIP()}, "Zone reload requested")
	c.JSON(http.StatusOK, gin.H{
		"status":  "acknowledged",
		"message": "zone reload is not supported; restart the server to load a new configuration",
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Listen binds the HTTP socket. A bind failure is returned.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("health server already listening on %s", s.listener.Addr())
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind HTTP socket on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.srv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return nil
}

// Serve handles requests until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln, srv := s.listener, s.srv
	s.mu.Unlock()
	if ln == nil {
		return errors.New("health server is not listening")
	}

	s.logger.Info(map[string]any{
		"address": ln.Addr().String(),
	}, "Health/metrics HTTP server listening")

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, ln := s.srv, s.listener
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	// Serve may never have run; the listener is then still open.
	_ = ln.Close()
	return err
}

// Address returns the bound address once listening, the configured one before.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
