package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/khanhnv2901/webscan/internal/advice"
	"github.com/khanhnv2901/webscan/internal/api/middleware"
	scanapp "github.com/khanhnv2901/webscan/internal/application/scan"
	"github.com/khanhnv2901/webscan/internal/checker"
	"github.com/khanhnv2901/webscan/internal/domain/scan"
	"github.com/khanhnv2901/webscan/internal/metrics"
	"github.com/khanhnv2901/webscan/internal/nmap"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	maxBodyBytes         = 1 << 20
	limiterIdleTTL       = 5 * time.Minute
	limiterSweepInterval = time.Minute
)

// PassiveScanner crawls a site and audits every fetched page.
type PassiveScanner interface {
	Crawl(ctx context.Context, startURL string, opts checker.CrawlOptions) checker.CrawlResult
}

// ActiveScanner runs the port and service scan against a host.
type ActiveScanner interface {
	Available() bool
	Scan(ctx context.Context, host, ports string) nmap.Result
}

type Config struct {
	Passive      PassiveScanner
	Active       ActiveScanner
	Store        scan.Repository   // nil disables history and scan persistence
	Advice       *advice.Table     // nil uses the built-in table
	Metrics      *metrics.Recorder // nil disables /metrics
	Jobs         *JobManager       // nil disables background jobs
	CrawlOptions checker.CrawlOptions
	MaxPages     int // upper bound for client-requested max_pages (0 = unbounded)
	AuthToken    string
	Logger       *zap.Logger
	CORSOrigins  []string // Allowed CORS origins (empty = allow all)
	RateLimit    int      // Requests per second per IP (0 = disabled)
	RateBurst    int      // Burst size for rate limiter
	TrustProxy   bool     // honour X-Forwarded-For when keying the rate limiter

	// ActiveTimeout bounds one synchronous active scan; 0 leaves the
	// server's WriteTimeout in charge.
	ActiveTimeout time.Duration
}

type Server struct {
	cfg      Config
	mux      *http.ServeMux
	handler  http.Handler
	limiters *rateLimiterMap
	scans    *scanapp.Service
	routes   []string // registered patterns, for metric labels
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Advice == nil {
		cfg.Advice = advice.Default()
	}
	if cfg.CrawlOptions.MaxPages == 0 && cfg.CrawlOptions.MaxDepth == 0 {
		cfg.CrawlOptions = checker.DefaultCrawlOptions()
	}
	var observer scanapp.Observer
	if cfg.Metrics != nil {
		observer = cfg.Metrics
	}
	srv := &Server{
		cfg:      cfg,
		mux:      http.NewServeMux(),
		limiters: newRateLimiterMap(),
		scans:    scanapp.NewService(cfg.Passive, cfg.Active, cfg.Store, observer, cfg.Logger),
	}
	srv.registerRoutes()
	// RequestID -> SecurityHeaders -> Logging -> RateLimit -> CORS -> mux
	srv.handler = middleware.RequestID(middleware.SecurityHeaders(srv.withLogging(srv.withRateLimit(srv.withCORS(srv.mux)))))
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	s.limiters.close()
	if s.cfg.Jobs != nil {
		s.cfg.Jobs.Close()
	}
}

func (s *Server) registerRoutes() {
	v1 := map[string]http.HandlerFunc{
		"/health":          s.handleHealth,
		"/scan/passive":    s.handlePassiveScan,
		"/scan/active":     s.handleActiveScan,
		"/export/csv":      s.handleExport(formatCSV),
		"/export/pdf":      s.handleExport(formatPDF),
		"/export/markdown": s.handleExport(formatMarkdown),
		"/chat":            s.handleChat,
		"/scans":           s.handleScans,
		"/scans/":          s.handleScanByID,
		"/jobs":            s.handleJobs,
		"/jobs/":           s.handleJobByID,
		"/jobs-stream":     s.handleJobStream,
	}
	for path, h := range v1 {
		s.handle("/api/v1"+path, h)
	}

	// Unversioned aliases kept for browser forms posting to the original paths.
	for _, path := range []string{"/scan/passive", "/scan/active", "/export/csv", "/export/pdf", "/chat"} {
		s.handle(path, v1[path])
	}

	if s.cfg.Metrics != nil {
		s.handle("/metrics", s.cfg.Metrics.Handler().ServeHTTP)
	}
	sort.Strings(s.routes)
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.withAuth(h))
	s.routes = append(s.routes, pattern)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	nmapAvailable := s.cfg.Active != nil && s.cfg.Active.Available()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"nmap_available":  nmapAvailable,
		"history_enabled": s.cfg.Store != nil,
	})
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.RateLimit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := s.clientIP(r)
		limiter := s.limiters.getLimiter(clientIP, s.cfg.RateLimit, s.cfg.RateBurst)
		if !limiter.Allow() {
			s.requestLogger(r).Warn("rate_limit_exceeded", zap.String("client_ip", clientIP))
			s.writeError(w, r, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP keys the rate limiter. X-Forwarded-For is only trusted behind a proxy.
func (s *Server) clientIP(r *http.Request) string {
	if s.cfg.TrustProxy {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowOrigin := "*"
		if len(s.cfg.CORSOrigins) > 0 {
			allowOrigin = ""
			for _, allowed := range s.cfg.CORSOrigins {
				if allowed == origin {
					allowOrigin = origin
					break
				}
			}
		}

		if allowOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Auth-Token, X-Request-ID")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "3600")
			if allowOrigin != "*" {
				w.Header().Add("Vary", "Origin")
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		s.cfg.Logger.Info("http_request",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", lrw.statusCode),
			zap.Duration("duration", time.Since(start)),
			zap.Int64("bytes", lrw.bytesWritten),
		)
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.ObserveRequest(s.routeLabel(r.URL.Path), lrw.statusCode)
		}
	})
}

// routeLabel maps a request path to its registered pattern so IDs do not explode
// metric cardinality.
func (s *Server) routeLabel(path string) string {
	best := ""
	for _, pattern := range s.routes {
		if pattern == path {
			return pattern
		}
		if strings.HasSuffix(pattern, "/") && strings.HasPrefix(path, pattern) && len(pattern) > len(best) {
			best = pattern
		}
	}
	if best == "" {
		return "unmatched"
	}
	return best + "{id}"
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	if s.cfg.AuthToken == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Auth-Token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) != 1 {
			s.writeError(w, r, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingResponseWriter wraps http.ResponseWriter to capture status code and bytes written
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	n, err := lrw.ResponseWriter.Write(b)
	lrw.bytesWritten += int64(n)
	return n, err
}

// Unwrap exposes the connection's writer to http.ResponseController.
func (lrw *loggingResponseWriter) Unwrap() http.ResponseWriter {
	return lrw.ResponseWriter
}

// Flush lets the job stream push events through the wrapper.
func (lrw *loggingResponseWriter) Flush() {
	if f, ok := lrw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()

	// 5xx details stay in the server log
	if status >= 500 {
		s.requestLogger(r).Error("internal_server_error",
			zap.Error(err),
			zap.Int("status", status),
		)
		msg = "internal server error"
	}

	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger creates a logger with request context (request ID, method, path)
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	logger := s.cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger.With(
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func (s *Server) writeStreamChunk(w http.ResponseWriter, data []byte) bool {
	if _, err := w.Write(data); err != nil {
		if s.cfg.Logger != nil {
			s.cfg.Logger.Error("failed to write stream chunk", zap.Error(err))
		}
		return false
	}
	return true
}

// rateLimiterMap manages per-IP rate limiters with automatic cleanup
type rateLimiterMap struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	done     chan struct{}
	once     sync.Once
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiterMap() *rateLimiterMap {
	m := &rateLimiterMap{
		limiters: make(map[string]*ipLimiter),
		done:     make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

func (m *rateLimiterMap) getLimiter(ip string, rps, burst int) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if burst <= 0 {
		burst = rps
	}
	entry, exists := m.limiters[ip]
	if !exists {
		entry = &ipLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
		m.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

func (m *rateLimiterMap) close() {
	m.once.Do(func() { close(m.done) })
}

// cleanupLoop removes limiters idle for longer than limiterIdleTTL
func (m *rateLimiterMap) cleanupLoop() {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep(time.Now())
		}
	}
}

func (m *rateLimiterMap) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ip, entry := range m.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(m.limiters, ip)
		}
	}
}
