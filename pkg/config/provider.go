package config

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// Controller types understood by the controller manager
const (
	ControllerTypeDashboard = "dashboard"
	ControllerTypeMetrics   = "metrics"
)

// Defaults applied by ApplyDefaults
const (
	DefaultDatasetPath     = "Metro_Interstate_Traffic_Volume.csv"
	DefaultTimestampColumn = "date_time"
	DefaultVolumeColumn    = "traffic_volume"
	DefaultWeatherColumn   = "weather_main"
	DefaultLocation        = "UTC"
	DefaultDelimiter       = ","
	DefaultPageTitle       = "Metro Interstate Traffic Volume Dashboard"
	DefaultDashboardPort   = 8080
	DefaultMetricsPort     = 9090
	DefaultPreviewRows     = 50
	DefaultChartWidth      = 800
	DefaultChartHeight     = 400
	DefaultLogMaxSizeMB    = 100
	DefaultLogMaxBackups   = 3
	DefaultLogMaxAgeDays   = 28
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetDataset() (*DatasetData, error)
	GetControllers() ([]ControllerData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Dataset     DatasetData      `json:"dataset"`
	Logging     LoggingData      `json:"logging,omitempty"`
	Controllers []ControllerData `json:"controllers,omitempty"`
}

// DatasetData describes the traffic CSV and how to read it
type DatasetData struct {
	Path             string   `json:"path"`
	TimestampColumn  string   `json:"timestamp_column,omitempty"`
	VolumeColumn     string   `json:"volume_column,omitempty"`
	WeatherColumn    string   `json:"weather_column,omitempty"`
	TimestampLayouts []string `json:"timestamp_layouts,omitempty"`
	Location         string   `json:"location,omitempty"`
	Delimiter        string   `json:"delimiter,omitempty"`
}

// LoggingData controls optional file output with rotation
type LoggingData struct {
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
}

// ControllerData holds the configuration for one controller
type ControllerData struct {
	Type      string         `json:"type,omitempty"`
	Dashboard *DashboardData `json:"dashboard,omitempty"`
	Metrics   *MetricsData   `json:"metrics,omitempty"`
}

type DashboardData struct {
	Cert        string `json:"cert,omitempty"`
	Key         string `json:"key,omitempty"`
	Port        int    `json:"port,omitempty"`
	ListenAddr  string `json:"listen_addr,omitempty"`
	PageTitle   string `json:"page_title,omitempty"`
	PreviewRows int    `json:"preview_rows,omitempty"`
	ChartWidth  int    `json:"chart_width,omitempty"`
	ChartHeight int    `json:"chart_height,omitempty"`
}

type MetricsData struct {
	Port       int    `json:"port,omitempty"`
	ListenAddr string `json:"listen_addr,omitempty"`
}

// DefaultDatasetData returns the dataset section with every default filled in
func DefaultDatasetData() DatasetData {
	var d DatasetData
	d.applyDefaults()
	return d
}

// DefaultConfig is used when no configuration file exists: the default dataset and a
// dashboard on the default port.
func DefaultConfig() *ConfigData {
	c := &ConfigData{
		Controllers: []ControllerData{{Type: ControllerTypeDashboard}},
	}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills every unset value in place
func (c *ConfigData) ApplyDefaults() {
	c.Dataset.applyDefaults()

	if c.Logging.File != "" {
		if c.Logging.MaxSizeMB == 0 {
			c.Logging.MaxSizeMB = DefaultLogMaxSizeMB
		}
		if c.Logging.MaxBackups == 0 {
			c.Logging.MaxBackups = DefaultLogMaxBackups
		}
		if c.Logging.MaxAgeDays == 0 {
			c.Logging.MaxAgeDays = DefaultLogMaxAgeDays
		}
	}

	for i := range c.Controllers {
		ctrl := &c.Controllers[i]
		switch ctrl.Type {
		case ControllerTypeDashboard:
			if ctrl.Dashboard == nil {
				ctrl.Dashboard = &DashboardData{}
			}
			ctrl.Dashboard.applyDefaults()
		case ControllerTypeMetrics:
			if ctrl.Metrics == nil {
				ctrl.Metrics = &MetricsData{}
			}
			if ctrl.Metrics.Port == 0 {
				ctrl.Metrics.Port = DefaultMetricsPort
			}
		}
	}
}

func (d *DatasetData) applyDefaults() {
	if d.Path == "" {
		d.Path = DefaultDatasetPath
	}
	if d.TimestampColumn == "" {
		d.TimestampColumn = DefaultTimestampColumn
	}
	if d.VolumeColumn == "" {
		d.VolumeColumn = DefaultVolumeColumn
	}
	if d.WeatherColumn == "" {
		d.WeatherColumn = DefaultWeatherColumn
	}
	if d.Location == "" {
		d.Location = DefaultLocation
	}
	if d.Delimiter == "" {
		d.Delimiter = DefaultDelimiter
	}
}

func (d *DashboardData) applyDefaults() {
	if d.Port == 0 {
		d.Port = DefaultDashboardPort
	}
	if d.PageTitle == "" {
		d.PageTitle = DefaultPageTitle
	}
	if d.PreviewRows == 0 {
		d.PreviewRows = DefaultPreviewRows
	}
	if d.ChartWidth == 0 {
		d.ChartWidth = DefaultChartWidth
	}
	if d.ChartHeight == 0 {
		d.ChartHeight = DefaultChartHeight
	}
}

// Validate rejects values the application cannot run with
func (c *ConfigData) Validate() error {
	var errs []error

	if c.Dataset.Path == "" {
		errs = append(errs, errors.New("dataset path must be set"))
	}
	if c.Dataset.Delimiter != "" && utf8.RuneCountInString(c.Dataset.Delimiter) != 1 {
		errs = append(errs, fmt.Errorf("dataset delimiter %q must be a single character", c.Dataset.Delimiter))
	}
	if c.Dataset.Location != "" {
		if _, err := time.LoadLocation(c.Dataset.Location); err != nil {
			errs = append(errs, fmt.Errorf("dataset location %q: %w", c.Dataset.Location, err))
		}
	}

	if len(c.Controllers) == 0 {
		errs = append(errs, errors.New("at least one controller must be configured"))
	}

	seen := map[string]bool{}
	for i, ctrl := range c.Controllers {
		if seen[ctrl.Type] {
			errs = append(errs, fmt.Errorf("controller %d: duplicate controller type %q", i, ctrl.Type))
		}
		seen[ctrl.Type] = true

		switch ctrl.Type {
		case ControllerTypeDashboard:
			if ctrl.Dashboard == nil {
				continue
			}
			if err := validPort(ctrl.Dashboard.Port); err != nil {
				errs = append(errs, fmt.Errorf("dashboard controller: %w", err))
			}
			if ctrl.Dashboard.PreviewRows < 0 {
				errs = append(errs, fmt.Errorf("dashboard controller: preview_rows must not be negative"))
			}
			if ctrl.Dashboard.ChartWidth < 0 || ctrl.Dashboard.ChartHeight < 0 {
				errs = append(errs, fmt.Errorf("dashboard controller: chart dimensions must not be negative"))
			}
			if (ctrl.Dashboard.Cert == "") != (ctrl.Dashboard.Key == "") {
				errs = append(errs, fmt.Errorf("dashboard controller: cert and key must be set together"))
			}
		case ControllerTypeMetrics:
			if ctrl.Metrics == nil {
				continue
			}
			if err := validPort(ctrl.Metrics.Port); err != nil {
				errs = append(errs, fmt.Errorf("metrics controller: %w", err))
			}
		default:
			errs = append(errs, fmt.Errorf("controller %d: unknown controller type %q", i, ctrl.Type))
		}
	}

	return errors.Join(errs...)
}

// Dashboard returns the dashboard controller section, or nil
func (c *ConfigData) Dashboard() *DashboardData {
	for _, ctrl := range c.Controllers {
		if ctrl.Type == ControllerTypeDashboard {
			return ctrl.Dashboard
		}
	}
	return nil
}

func validPort(p int) error {
	if p < 1 || p > 65535 {
		return fmt.Errorf("port %d out of range", p)
	}
	return nil
}
