package config

import (
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/chrissnell/trafficdash/pkg/migrate"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// NewMigrator returns a migrator for the embedded configuration schema
func NewMigrator(db *sql.DB, logger *zap.SugaredLogger) *migrate.Migrator {
	return migrate.NewMigrator(db, migrate.NewFSProvider(migrationsFS, "migrations"), migrate.DefaultTable, logger)
}

// Setting keys stored in the settings table
const (
	settingDatasetPath       = "dataset.path"
	settingTimestampColumn   = "dataset.timestamp_column"
	settingVolumeColumn      = "dataset.volume_column"
	settingWeatherColumn     = "dataset.weather_column"
	settingTimestampLayouts  = "dataset.timestamp_layouts"
	settingLocation          = "dataset.location"
	settingDelimiter         = "dataset.delimiter"
	settingLogFile           = "logging.file"
	settingLogMaxSizeMB      = "logging.max_size_mb"
	settingLogMaxBackups     = "logging.max_backups"
	settingLogMaxAgeDays     = "logging.max_age_days"
	timestampLayoutSeparator = "\n"
)

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider and brings the schema up to
// the latest migration.
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if err := NewMigrator(db, nil).Up(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate configuration schema: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	settings, err := s.settings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	config := &ConfigData{
		Dataset: datasetFromSettings(settings),
	}

	config.Logging, err = loggingFromSettings(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to load logging settings: %w", err)
	}

	controllers, err := s.GetControllers()
	if err != nil {
		return nil, fmt.Errorf("failed to load controllers: %w", err)
	}
	config.Controllers = controllers

	config.ApplyDefaults()
	return config, nil
}

// GetDataset returns the dataset section from the settings table
func (s *SQLiteProvider) GetDataset() (*DatasetData, error) {
	settings, err := s.settings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	d := datasetFromSettings(settings)
	d.applyDefaults()
	return &d, nil
}

// GetControllers returns enabled controller configurations from the database
func (s *SQLiteProvider) GetControllers() ([]ControllerData, error) {
	query := `
		SELECT controller_type, cert, key, port, listen_addr,
		       page_title, preview_rows, chart_width, chart_height
		FROM controllers
		WHERE enabled = 1
		ORDER BY controller_type
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query controllers: %w", err)
	}
	defer rows.Close()

	var controllers []ControllerData
	for rows.Next() {
		var controllerType string
		var cert, key, listenAddr, pageTitle sql.NullString
		var port, previewRows, chartWidth, chartHeight sql.NullInt64

		err := rows.Scan(
			&controllerType, &cert, &key, &port, &listenAddr,
			&pageTitle, &previewRows, &chartWidth, &chartHeight,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan controller row: %w", err)
		}

		controller := ControllerData{Type: controllerType}

		switch controllerType {
		case ControllerTypeDashboard:
			controller.Dashboard = &DashboardData{
				Cert:        cert.String,
				Key:         key.String,
				Port:        int(port.Int64),
				ListenAddr:  listenAddr.String,
				PageTitle:   pageTitle.String,
				PreviewRows: int(previewRows.Int64),
				ChartWidth:  int(chartWidth.Int64),
				ChartHeight: int(chartHeight.Int64),
			}
		case ControllerTypeMetrics:
			controller.Metrics = &MetricsData{
				Port:       int(port.Int64),
				ListenAddr: listenAddr.String,
			}
		}

		controllers = append(controllers, controller)
	}

	return controllers, rows.Err()
}

// IsReadOnly returns false since SQLite configuration can be modified
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveConfig replaces the stored configuration with configData
func (s *SQLiteProvider) SaveConfig(configData *ConfigData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{"DELETE FROM settings", "DELETE FROM controllers"} {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("failed to clear existing config: %w", err)
		}
	}

	for k, v := range settingsFromConfig(configData) {
		if _, err := tx.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("failed to insert setting %s: %w", k, err)
		}
	}

	for _, controller := range configData.Controllers {
		if err := s.insertController(tx, &controller); err != nil {
			return fmt.Errorf("failed to insert controller %s: %w", controller.Type, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteProvider) insertController(tx *sql.Tx, controller *ControllerData) error {
	query := `
		INSERT INTO controllers (
			controller_type, enabled, cert, key, port, listen_addr,
			page_title, preview_rows, chart_width, chart_height
		) VALUES (?, 1, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var cert, key, listenAddr, pageTitle sql.NullString
	var port, previewRows, chartWidth, chartHeight sql.NullInt64

	if d := controller.Dashboard; d != nil {
		cert = nullString(d.Cert)
		key = nullString(d.Key)
		port = nullInt64(d.Port)
		listenAddr = nullString(d.ListenAddr)
		pageTitle = nullString(d.PageTitle)
		previewRows = nullInt64(d.PreviewRows)
		chartWidth = nullInt64(d.ChartWidth)
		chartHeight = nullInt64(d.ChartHeight)
	}
	if m := controller.Metrics; m != nil {
		port = nullInt64(m.Port)
		listenAddr = nullString(m.ListenAddr)
	}

	_, err := tx.Exec(query, controller.Type, cert, key, port, listenAddr,
		pageTitle, previewRows, chartWidth, chartHeight)
	return err
}

func (s *SQLiteProvider) settings() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan setting row: %w", err)
		}
		settings[k] = v
	}
	return settings, rows.Err()
}

func datasetFromSettings(settings map[string]string) DatasetData {
	d := DatasetData{
		Path:            settings[settingDatasetPath],
		TimestampColumn: settings[settingTimestampColumn],
		VolumeColumn:    settings[settingVolumeColumn],
		WeatherColumn:   settings[settingWeatherColumn],
		Location:        settings[settingLocation],
		Delimiter:       settings[settingDelimiter],
	}
	if layouts := settings[settingTimestampLayouts]; layouts != "" {
		d.TimestampLayouts = strings.Split(layouts, timestampLayoutSeparator)
	}
	return d
}

func loggingFromSettings(settings map[string]string) (LoggingData, error) {
	l := LoggingData{File: settings[settingLogFile]}

	ints := []struct {
		key string
		dst *int
	}{
		{settingLogMaxSizeMB, &l.MaxSizeMB},
		{settingLogMaxBackups, &l.MaxBackups},
		{settingLogMaxAgeDays, &l.MaxAgeDays},
	}
	for _, i := range ints {
		raw, ok := settings[i.key]
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return l, fmt.Errorf("setting %s: %w", i.key, err)
		}
		*i.dst = v
	}
	return l, nil
}

func settingsFromConfig(c *ConfigData) map[string]string {
	out := map[string]string{}
	put := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	putInt := func(k string, v int) {
		if v != 0 {
			out[k] = strconv.Itoa(v)
		}
	}

	put(settingDatasetPath, c.Dataset.Path)
	put(settingTimestampColumn, c.Dataset.TimestampColumn)
	put(settingVolumeColumn, c.Dataset.VolumeColumn)
	put(settingWeatherColumn, c.Dataset.WeatherColumn)
	put(settingTimestampLayouts, strings.Join(c.Dataset.TimestampLayouts, timestampLayoutSeparator))
	put(settingLocation, c.Dataset.Location)
	put(settingDelimiter, c.Dataset.Delimiter)
	put(settingLogFile, c.Logging.File)
	putInt(settingLogMaxSizeMB, c.Logging.MaxSizeMB)
	putInt(settingLogMaxBackups, c.Logging.MaxBackups)
	putInt(settingLogMaxAgeDays, c.Logging.MaxAgeDays)
	return out
}

// Helper functions for handling nullable fields
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt64(i int) sql.NullInt64 {
	if i == 0 {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: int64(i), Valid: true}
}
