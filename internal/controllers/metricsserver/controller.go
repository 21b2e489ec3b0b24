// Package metricsserver exposes health, readiness and Prometheus metrics on a separate
// listener from the dashboard.
package metricsserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chrissnell/trafficdash/internal/log"
	"github.com/chrissnell/trafficdash/pkg/config"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// ReadinessFunc adapts a function to ReadinessChecker
type ReadinessFunc func(ctx context.Context) error

func (f ReadinessFunc) CheckReadiness(ctx context.Context) error { return f(ctx) }

// Controller serves /healthz, /readyz and /metrics
type Controller struct {
	ctx    context.Context
	wg     *sync.WaitGroup
	Server http.Server
	logger *zap.SugaredLogger
}

// NewController creates the metrics controller. gatherer is usually the registry of
// observability.Metrics.
func NewController(ctx context.Context, wg *sync.WaitGroup, mc config.MetricsData, gatherer prometheus.Gatherer, ready ReadinessChecker, logger *zap.SugaredLogger) (*Controller, error) {
	if gatherer == nil {
		return nil, fmt.Errorf("metrics controller requires a gatherer")
	}
	if logger == nil {
		logger = log.GetSugaredLogger()
	}
	if mc.ListenAddr == "" {
		mc.ListenAddr = "0.0.0.0"
	}
	if mc.Port == 0 {
		logger.Infof("metrics.port not provided; defaulting to %d", config.DefaultMetricsPort)
		mc.Port = config.DefaultMetricsPort
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/readyz", handleReady(ready)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog: log.RecoveryLogger{Logger: logger},
	})).Methods(http.MethodGet)

	return &Controller{
		ctx: ctx,
		wg:  wg,
		Server: http.Server{
			Addr:         fmt.Sprintf("%v:%v", mc.ListenAddr, mc.Port),
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}, nil
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (c *Controller) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.Server.Handler.ServeHTTP(w, r)
}

// StartController starts the metrics server
func (c *Controller) StartController() error {
	c.logger.Infof("Starting metrics server on %s...", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
			c.logger.Errorf("metrics server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		c.logger.Info("Shutting down the metrics server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
