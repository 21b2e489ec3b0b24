package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	// Load into temporary struct with YAML tags
	var yamlConfig struct {
		Dataset     DatasetYAML      `yaml:"dataset"`
		Logging     LoggingYAML      `yaml:"logging,omitempty"`
		Controllers []ControllerYAML `yaml:"controllers,omitempty"`
	}

	err = yaml.UnmarshalStrict(cfgFile, &yamlConfig)
	if err != nil {
		return nil, err
	}

	config := &ConfigData{
		Dataset: DatasetData{
			Path:             yamlConfig.Dataset.Path,
			TimestampColumn:  yamlConfig.Dataset.TimestampColumn,
			VolumeColumn:     yamlConfig.Dataset.VolumeColumn,
			WeatherColumn:    yamlConfig.Dataset.WeatherColumn,
			TimestampLayouts: yamlConfig.Dataset.TimestampLayouts,
			Location:         yamlConfig.Dataset.Location,
			Delimiter:        yamlConfig.Dataset.Delimiter,
		},
		Logging: LoggingData{
			File:       yamlConfig.Logging.File,
			MaxSizeMB:  yamlConfig.Logging.MaxSizeMB,
			MaxBackups: yamlConfig.Logging.MaxBackups,
			MaxAgeDays: yamlConfig.Logging.MaxAgeDays,
		},
		Controllers: make([]ControllerData, len(yamlConfig.Controllers)),
	}

	for i, controller := range yamlConfig.Controllers {
		config.Controllers[i] = ControllerData{
			Type: controller.Type,
		}

		if controller.Dashboard != nil {
			config.Controllers[i].Dashboard = &DashboardData{
				Cert:        controller.Dashboard.Cert,
				Key:         controller.Dashboard.Key,
				Port:        controller.Dashboard.Port,
				ListenAddr:  controller.Dashboard.ListenAddr,
				PageTitle:   controller.Dashboard.PageTitle,
				PreviewRows: controller.Dashboard.PreviewRows,
				ChartWidth:  controller.Dashboard.ChartWidth,
				ChartHeight: controller.Dashboard.ChartHeight,
			}
		}

		if controller.Metrics != nil {
			config.Controllers[i].Metrics = &MetricsData{
				Port:       controller.Metrics.Port,
				ListenAddr: controller.Metrics.ListenAddr,
			}
		}
	}

	config.ApplyDefaults()
	y.config = config
	return config, nil
}

// GetDataset returns the dataset section
func (y *YAMLProvider) GetDataset() (*DatasetData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Dataset, nil
}

// GetControllers returns controller configurations
func (y *YAMLProvider) GetControllers() ([]ControllerData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return y.config.Controllers, nil
}

// IsReadOnly returns true since YAML files are read-only through this interface
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs
type DatasetYAML struct {
	Path             string   `yaml:"path"`
	TimestampColumn  string   `yaml:"timestamp-column,omitempty"`
	VolumeColumn     string   `yaml:"volume-column,omitempty"`
	WeatherColumn    string   `yaml:"weather-column,omitempty"`
	TimestampLayouts []string `yaml:"timestamp-layouts,omitempty"`
	Location         string   `yaml:"location,omitempty"`
	Delimiter        string   `yaml:"delimiter,omitempty"`
}

type LoggingYAML struct {
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max-size-mb,omitempty"`
	MaxBackups int    `yaml:"max-backups,omitempty"`
	MaxAgeDays int    `yaml:"max-age-days,omitempty"`
}

type ControllerYAML struct {
	Type      string         `yaml:"type,omitempty"`
	Dashboard *DashboardYAML `yaml:"dashboard,omitempty"`
	Metrics   *MetricsYAML   `yaml:"metrics,omitempty"`
}

type DashboardYAML struct {
	Cert        string `yaml:"cert,omitempty"`
	Key         string `yaml:"key,omitempty"`
	Port        int    `yaml:"port,omitempty"`
	ListenAddr  string `yaml:"listen-addr,omitempty"`
	PageTitle   string `yaml:"page-title,omitempty"`
	PreviewRows int    `yaml:"preview-rows,omitempty"`
	ChartWidth  int    `yaml:"chart-width,omitempty"`
	ChartHeight int    `yaml:"chart-height,omitempty"`
}

type MetricsYAML struct {
	Port       int    `yaml:"port,omitempty"`
	ListenAddr string `yaml:"listen-addr,omitempty"`
}
