// Package dashboardserver serves the traffic dashboard page, its charts, the JSON API and
// the XLSX preview export.
package dashboardserver

import (
	"context"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/chrissnell/trafficdash/internal/dashboard"
	"github.com/chrissnell/trafficdash/internal/excel"
	"github.com/chrissnell/trafficdash/internal/log"
	"github.com/chrissnell/trafficdash/internal/render"
	"github.com/chrissnell/trafficdash/pkg/config"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Controller represents the dashboard web server controller
type Controller struct {
	ctx      context.Context
	wg       *sync.WaitGroup
	config   config.DashboardData
	Server   http.Server
	FS       fs.FS
	index    *htmltemplate.Template
	pipeline *dashboard.Pipeline
	renderer *render.Renderer
	exporter *excel.Exporter
	charts   dashboard.ChartObserver
	logger   *zap.SugaredLogger
	handlers *Handlers
}

// NewController creates a new dashboard controller. charts may be nil.
func NewController(ctx context.Context, wg *sync.WaitGroup, dc config.DashboardData, p *dashboard.Pipeline, charts dashboard.ChartObserver, logger *zap.SugaredLogger) (*Controller, error) {
	if p == nil {
		return nil, fmt.Errorf("dashboard controller requires a pipeline")
	}
	if logger == nil {
		logger = log.GetSugaredLogger()
	}

	if dc.ListenAddr == "" {
		logger.Info("dashboard.listen-addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		dc.ListenAddr = "0.0.0.0"
	}
	if dc.Port == 0 {
		logger.Infof("dashboard.port not provided; defaulting to %d", config.DefaultDashboardPort)
		dc.Port = config.DefaultDashboardPort
	}
	if dc.PageTitle == "" {
		dc.PageTitle = config.DefaultPageTitle
	}
	if (dc.Cert == "") != (dc.Key == "") {
		return nil, fmt.Errorf("dashboard TLS needs both cert and key")
	}

	var err error
	ctrl := &Controller{
		ctx:      ctx,
		wg:       wg,
		config:   dc,
		FS:       GetAssets(),
		pipeline: p,
		renderer: render.NewRenderer(dc.ChartWidth, dc.ChartHeight),
		exporter: excel.NewExporter(dc.PageTitle, nil, logger),
		charts:   charts,
		logger:   logger,
	}
	ctrl.index, err = htmltemplate.New(indexTemplate).Funcs(htmltemplate.FuncMap{
		"volume": render.FormatVolume,
	}).ParseFS(ctrl.FS, indexTemplate)
	if err != nil {
		return nil, fmt.Errorf("error parsing dashboard template: %w", err)
	}
	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server = http.Server{
		Addr:              fmt.Sprintf("%v:%v", dc.ListenAddr, dc.Port),
		Handler:           ctrl.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return ctrl, nil
}

// Handler returns the router wrapped in the request ID, logging, recovery and compression
// middleware
func (c *Controller) Handler() http.Handler {
	var h http.Handler = c.setupRouter()
	h = handlers.CompressHandler(h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(log.RecoveryLogger{Logger: c.logger}),
		handlers.PrintRecoveryStack(false),
	)(h)
	h = log.HTTPLogger(c.logger)(h)
	return log.RequestID(h)
}

// StartController starts the dashboard server
func (c *Controller) StartController() error {
	c.logger.Infof("Starting dashboard server on %s...", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if c.config.Cert != "" && c.config.Key != "" {
			if err := c.Server.ListenAndServeTLS(c.config.Cert, c.config.Key); err != http.ErrServerClosed {
				c.logger.Errorf("dashboard server error: %v", err)
			}
		} else {
			if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
				c.logger.Errorf("dashboard server error: %v", err)
			}
		}
	}()

	go func() {
		<-c.ctx.Done()
		c.logger.Info("Shutting down the dashboard server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/", c.handlers.ServeDashboard).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/charts/{name}.png", c.handlers.ServeChart).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/api/options", c.handlers.GetOptions).Methods(http.MethodGet)
	router.HandleFunc("/api/dashboard", c.handlers.GetDashboard).Methods(http.MethodGet)
	router.HandleFunc("/export/preview.xlsx", c.handlers.ExportPreview).Methods(http.MethodGet)

	// Static file serving
	router.PathPrefix("/css/").Handler(http.FileServer(http.FS(c.FS)))

	return router
}
