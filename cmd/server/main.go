// Package main is the entry point for the staking dashboard backend: a
// read-only API that aggregates per-wallet staking rewards and governance
// vote distributions fetched from a remote analytics service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourorg/staking-dashboard/internal/aggregate"
	"github.com/yourorg/staking-dashboard/internal/colors"
	"github.com/yourorg/staking-dashboard/internal/config"
	"github.com/yourorg/staking-dashboard/internal/errs"
	"github.com/yourorg/staking-dashboard/internal/export"
	"github.com/yourorg/staking-dashboard/internal/fetch"
	"github.com/yourorg/staking-dashboard/internal/model"
	"github.com/yourorg/staking-dashboard/internal/otel"
	"github.com/yourorg/staking-dashboard/internal/session"
	"github.com/yourorg/staking-dashboard/internal/store"
	"github.com/yourorg/staking-dashboard/internal/validation"
)

// startTime records when the service was initialized for uptime reporting
var startTime = time.Now()

// Server is the dashboard API server instance.
type Server struct {
	config   config.Config
	session  *session.Session
	fetcher  *fetch.Client
	assigner *colors.Assigner
	server   *http.Server
	metrics  *serverMetrics
	limiter  *rate.Limiter
}

// serverMetrics holds Prometheus metrics for the server
type serverMetrics struct {
	requestCounter      *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	aggregationDuration prometheus.Histogram
}

// registerMetrics sets up Prometheus metrics collection
func registerMetrics() *serverMetrics {
	m := &serverMetrics{
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_requests_total",
				Help: "Total number of API requests processed",
			},
			[]string{"path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dashboard_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path"},
		),
		aggregationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dashboard_aggregation_duration_seconds",
				Help:    "Full aggregation recompute duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	prometheus.MustRegister(m.requestCounter, m.requestDuration, m.aggregationDuration)
	return m
}

// main is the entry point for the application
func main() {
	setupLogging()

	cfg := config.Load()

	shutdownTracer := otel.InitTracer(cfg.OtelEndpoint)
	defer shutdownTracer()

	st := store.New()
	fetcher := fetch.New(cfg)
	sess := session.New(fetcher, st, cfg.RequestTimeout)
	assigner := colors.NewAssigner(colorStorage(cfg))

	server := NewServer(cfg, sess, fetcher, assigner)
	server.Start()
}

// setupLogging configures the logging for the application
func setupLogging() {
	logFormat := strings.ToLower(os.Getenv("LOG_FORMAT"))
	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))

	switch logFormat {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	switch logLevel {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}

	logrus.Info("Logging configured")
}

// colorStorage picks the color map backend: Redis when configured,
// otherwise a local JSON file.
func colorStorage(cfg config.Config) colors.Storage {
	if cfg.RedisAddr != "" {
		logrus.WithField("addr", cfg.RedisAddr).Info("Using Redis color store")
		return colors.NewRedisStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
	}
	return colors.NewFileStore(cfg.ColorStorePath)
}

// NewServer creates a new server instance.
func NewServer(cfg config.Config, sess *session.Session, fetcher *fetch.Client, assigner *colors.Assigner) *Server {
	s := &Server{
		config:   cfg,
		session:  sess,
		fetcher:  fetcher,
		assigner: assigner,
		metrics:  registerMetrics(),
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
	}

	logrus.WithFields(logrus.Fields{
		"port":        cfg.Port,
		"network":     cfg.Network,
		"api":         cfg.APIBaseURL,
		"maxPoints":   cfg.MaxChartPoints,
		"rateLimit":   cfg.RateLimitRPS,
		"redisColors": cfg.RedisAddr != "",
	}).Info("Server initialized")

	return s
}

// Start begins the HTTP server and sets up graceful shutdown
func (s *Server) Start() {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/wallets", s.withMiddleware(s.handleWallets))
	mux.HandleFunc("/v1/dashboard", s.withMiddleware(s.handleDashboard))
	mux.HandleFunc("/v1/governance", s.withMiddleware(s.handleGovernance))
	mux.HandleFunc("/v1/export", s.withMiddleware(s.handleExport))
	mux.HandleFunc("/v1/colors/override", s.withMiddleware(s.handleColorOverride))
	mux.HandleFunc("/v1/colors/reset", s.withMiddleware(s.handleColorReset))
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("Server starting on port %s", s.config.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Error starting server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server shutdown failed: %v", err)
	}

	logrus.Info("Server stopped")
}

// withMiddleware applies rate limiting, request IDs and request metrics.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if !s.limiter.Allow() {
			s.errorResponse(w, r, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}

		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)
		logrus.WithFields(logrus.Fields{
			"requestId": requestID,
			"method":    r.Method,
			"path":      r.URL.Path,
		}).Debug("Request received")

		next(w, r)

		s.metrics.requestDuration.WithLabelValues(r.URL.Path).Observe(time.Since(start).Seconds())
		s.metrics.requestCounter.WithLabelValues(r.URL.Path, "handled").Inc()
	}
}

// handleWallets manages the wallet selection: POST adds a wallet and starts
// its fetch, DELETE removes one, GET lists lifecycle states.
func (s *Server) handleWallets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			Address string `json:"address"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.errorResponse(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}
		if !validation.ValidWalletAddress(req.Address) {
			s.errorResponse(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid wallet address: %s", req.Address))
			return
		}
		s.session.Add(req.Address)
		s.jsonResponse(w, http.StatusAccepted, map[string]interface{}{
			"address": req.Address,
			"status":  s.session.Status(req.Address),
		})

	case http.MethodDelete:
		address := r.URL.Query().Get("address")
		if address == "" {
			s.errorResponse(w, r, http.StatusBadRequest, "Missing address parameter")
			return
		}
		s.session.Remove(address)
		w.WriteHeader(http.StatusNoContent)

	case http.MethodGet:
		s.jsonResponse(w, http.StatusOK, map[string]interface{}{
			"wallets": s.session.States(),
		})

	default:
		s.errorResponse(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// dashboardResponse is the full chart payload for the current selection.
type dashboardResponse struct {
	Wallets    []string          `json:"wallets"`
	EpochCount int               `json:"epochCount"`
	Rows       []model.Bucket    `json:"rows"`
	Cumulative []model.Bucket    `json:"cumulative"`
	Stats      model.GlobalStats `json:"stats"`
	Colors     model.ColorMap    `json:"colors"`
}

// handleDashboard recomputes every derived view from the current snapshot.
// Aggregation is pure and cheap at realistic volumes, so there is no cache
// to invalidate.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, r, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	start := time.Now()
	in := s.session.Snapshot()

	rows := aggregate.BuildEpochRows(in)
	buckets := aggregate.Bucketize(rows, in.SelectedWallets, s.config.MaxChartPoints)
	resp := dashboardResponse{
		Wallets:    in.SelectedWallets,
		EpochCount: len(rows),
		Rows:       buckets,
		Cumulative: aggregate.CumulativeBuckets(buckets, in.SelectedWallets),
		Stats:      aggregate.Stats(in, rows),
		Colors:     s.assigner.Assign(s.session.Selection()),
	}
	s.metrics.aggregationDuration.Observe(time.Since(start).Seconds())

	s.jsonResponse(w, http.StatusOK, resp)
}

// handleGovernance proxies the validated governance distribution. An
// optional ?top=N trims both voter lists to the N largest voters for the
// distribution chart.
func (s *Server) handleGovernance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, r, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	votes, err := s.fetcher.GovernanceVotes(ctx)
	if err != nil {
		s.remoteErrorResponse(w, r, err)
		return
	}

	if top := r.URL.Query().Get("top"); top != "" {
		n, err := strconv.Atoi(top)
		if err != nil || n < 1 {
			s.errorResponse(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid top parameter: %s", top))
			return
		}
		votes.Yes = model.TopVoters(votes.Yes, n)
		votes.No = model.TopVoters(votes.No, n)
	}
	s.jsonResponse(w, http.StatusOK, votes)
}

// handleExport streams the two-sheet xlsx for the current selection.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, r, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	wb := export.Build(s.session.Snapshot())
	data, err := export.WriteXLSX(wb)
	if err != nil {
		logrus.WithError(err).Error("Spreadsheet rendering failed")
		s.errorResponse(w, r, http.StatusInternalServerError, "Export failed")
		return
	}

	name := export.FileName(time.Now())
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleColorOverride pins an explicit color for one wallet.
func (s *Server) handleColorOverride(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, r, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req struct {
		Wallet string `json:"wallet"`
		Color  string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.assigner.Override(req.Wallet, req.Color); err != nil {
		s.errorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, s.assigner.Assign(s.session.Selection()))
}

// handleColorReset discards stored colors and re-derives them by selection
// index.
func (s *Server) handleColorReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, r, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.jsonResponse(w, http.StatusOK, s.assigner.Reset(s.session.Selection()))
}

// handleHealth is a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"version":   "1.0.0",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStatus provides detailed service status information
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":  "operational",
		"uptime":  time.Since(startTime).String(),
		"version": "1.0.0",
		"network": s.config.Network,
		"wallets": s.session.States(),
		"configuration": map[string]interface{}{
			"maxChartPoints": s.config.MaxChartPoints,
			"requestTimeout": s.config.RequestTimeout.String(),
		},
	})
}

// remoteErrorResponse maps a classified remote failure to an API status so
// the UI can distinguish transport problems from malformed upstream data.
func (s *Server) remoteErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	switch errs.KindOf(err) {
	case errs.KindParsing:
		status = http.StatusUnprocessableEntity
	case errs.KindHTTP:
		status = http.StatusBadGateway
	case errs.KindNetwork:
		status = http.StatusGatewayTimeout
	}

	logrus.WithFields(logrus.Fields{
		"path": r.URL.Path,
		"kind": string(errs.KindOf(err)),
	}).WithError(err).Warn("Remote fetch failed")

	s.jsonResponse(w, status, map[string]interface{}{
		"error": err.Error(),
		"kind":  string(errs.KindOf(err)),
	})
}

func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, statusCode int, msg string) {
	logrus.WithFields(logrus.Fields{
		"path":   r.URL.Path,
		"status": statusCode,
	}).Warn(msg)
	s.metrics.requestCounter.WithLabelValues(r.URL.Path, "error").Inc()
	s.jsonResponse(w, statusCode, map[string]interface{}{"error": msg})
}

func (s *Server) jsonResponse(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Error("Failed to encode response")
	}
}
