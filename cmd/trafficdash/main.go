package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chrissnell/trafficdash/internal/app"
	"github.com/chrissnell/trafficdash/internal/constants"
	"github.com/chrissnell/trafficdash/internal/log"
	"github.com/chrissnell/trafficdash/pkg/config"
)

const defaultConfigFile = "config.yaml"

func main() {
	cfgFile := flag.String("config", defaultConfigFile, "Path to configuration source:\n\t\t\t  YAML: config.yaml\n\t\t\t  SQLite: config.db\n\t\t\t  A missing config.yaml runs with built-in defaults")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' for YAML files, 'sqlite' for SQLite databases")
	dataset := flag.String("dataset", "", "Path to the traffic CSV, overriding the configured path")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("trafficdash %s\n", constants.Version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Load configuration
	cfgData, err := loadConfig(*cfgFile, *cfgBackend)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	if *dataset != "" {
		cfgData.Dataset.Path = *dataset
	}
	if err := cfgData.Validate(); err != nil {
		log.Errorf("Invalid configuration: %v", err)
		os.Exit(1)
	}

	// Re-initialize with file output once the logging section is known
	if cfgData.Logging.File != "" {
		if err := log.InitWithOptions(*debug, cfgData.Logging); err != nil {
			log.Errorf("Failed to initialize file logging: %v", err)
			os.Exit(1)
		}
	}

	// Create and run the application
	application := app.New(cfgData, log.GetSugaredLogger())
	if err := application.Run(context.Background()); err != nil {
		log.Errorf("Application error: %v", err)
		log.Sync()
		os.Exit(1)
	}
}

func loadConfig(cfgFile, cfgBackend string) (*config.ConfigData, error) {
	filename, _ := filepath.Abs(cfgFile)

	var provider config.ConfigProvider
	var err error

	switch cfgBackend {
	case "yaml":
		provider = config.NewYAMLProvider(filename)
	case "sqlite":
		provider, err = config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", cfgBackend)
	}
	defer provider.Close()

	cfgData, err := provider.LoadConfig()
	if err != nil {
		if cfgBackend == "yaml" && cfgFile == defaultConfigFile && errors.Is(err, os.ErrNotExist) {
			log.Infof("%s not found; using built-in defaults", cfgFile)
			return config.DefaultConfig(), nil
		}
		return nil, fmt.Errorf("error reading config file. Did you pass the -config flag? Run with -h for help: %w", err)
	}

	return cfgData, nil
}
