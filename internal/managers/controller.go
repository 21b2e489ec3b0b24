package managers

import (
	"context"
	"fmt"
	"sync"

	"github.com/chrissnell/trafficdash/internal/controllers/dashboardserver"
	"github.com/chrissnell/trafficdash/internal/controllers/metricsserver"
	"github.com/chrissnell/trafficdash/internal/dashboard"
	"github.com/chrissnell/trafficdash/internal/observability"
	"github.com/chrissnell/trafficdash/pkg/config"
	"go.uber.org/zap"
)

// ControllerManager interface for the controller manager
type ControllerManager interface {
	StartControllers() error
}

// Controller is an interface that provides standard methods for various controller backends
type Controller interface {
	StartController() error
}

// Dependencies are the shared objects controllers are built from
type Dependencies struct {
	Pipeline  *dashboard.Pipeline
	Metrics   *observability.Metrics
	Readiness metricsserver.ReadinessChecker
}

// NewControllerManager creates a new controller manager
func NewControllerManager(ctx context.Context, wg *sync.WaitGroup, controllers []config.ControllerData, deps Dependencies, logger *zap.SugaredLogger) (ControllerManager, error) {
	cm := &controllerManager{
		ctx:         ctx,
		wg:          wg,
		deps:        deps,
		logger:      logger,
		controllers: make([]Controller, 0, len(controllers)),
	}

	// Create controllers based on configuration
	for _, con := range controllers {
		controller, err := cm.createController(con)
		if err != nil {
			return nil, fmt.Errorf("error creating %s controller: %w", con.Type, err)
		}
		cm.controllers = append(cm.controllers, controller)
	}

	return cm, nil
}

type controllerManager struct {
	ctx         context.Context
	wg          *sync.WaitGroup
	deps        Dependencies
	logger      *zap.SugaredLogger
	controllers []Controller
}

func (c *controllerManager) StartControllers() error {
	c.logger.Info("Starting controller manager...")

	for _, controller := range c.controllers {
		err := controller.StartController()
		if err != nil {
			return fmt.Errorf("error starting controller: %w", err)
		}
	}

	c.logger.Infof("Started %d controllers successfully", len(c.controllers))
	return nil
}

// createController creates a controller based on the controller configuration
func (cm *controllerManager) createController(cc config.ControllerData) (Controller, error) {
	switch cc.Type {
	case config.ControllerTypeDashboard:
		var dc config.DashboardData
		if cc.Dashboard != nil {
			dc = *cc.Dashboard
		}
		var charts dashboard.ChartObserver
		if cm.deps.Metrics != nil {
			charts = cm.deps.Metrics
		}
		return dashboardserver.NewController(cm.ctx, cm.wg, dc, cm.deps.Pipeline, charts, cm.logger)
	case config.ControllerTypeMetrics:
		if cm.deps.Metrics == nil {
			return nil, fmt.Errorf("metrics are not enabled")
		}
		var mc config.MetricsData
		if cc.Metrics != nil {
			mc = *cc.Metrics
		}
		return metricsserver.NewController(cm.ctx, cm.wg, mc, cm.deps.Metrics.Registry, cm.deps.Readiness, cm.logger)
	default:
		return nil, fmt.Errorf("unknown controller type: %s", cc.Type)
	}
}
