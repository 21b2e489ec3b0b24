package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chrissnell/trafficdash/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file (required)")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite database file (required)")
		force      = flag.Bool("force", false, "Overwrite existing SQLite database")
		dryRun     = flag.Bool("dry-run", false, "Show what would be done without executing")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> -sqlite <config.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	if _, err := os.Stat(*yamlFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: YAML file does not exist: %s\n", *yamlFile)
		os.Exit(1)
	}

	if _, err := os.Stat(*sqliteFile); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: SQLite file already exists: %s\n", *sqliteFile)
		fmt.Fprintf(os.Stderr, "Use -force to overwrite or choose a different filename\n")
		os.Exit(1)
	}

	fmt.Printf("Converting YAML configuration to SQLite...\n")
	fmt.Printf("  Source: %s\n", *yamlFile)
	fmt.Printf("  Target: %s\n", *sqliteFile)

	configData, err := config.NewYAMLProvider(*yamlFile).LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML configuration: %v\n", err)
		os.Exit(1)
	}
	if err := configData.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: YAML configuration is invalid: %v\n", err)
		os.Exit(1)
	}

	if *dryRun {
		fmt.Println("DRY RUN - No changes will be made")
		printConfigSummary(configData)
		return
	}

	if *force {
		if err := os.Remove(*sqliteFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error removing existing SQLite file: %v\n", err)
			os.Exit(1)
		}
	}

	if err := os.MkdirAll(filepath.Dir(*sqliteFile), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}

	if err := saveConfig(*sqliteFile, configData); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing SQLite configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Conversion completed successfully!\n")
	fmt.Printf("You can now use the SQLite backend with: -config-backend sqlite -config %s\n", *sqliteFile)
}

// saveConfig creates the database, migrates it and stores configData
func saveConfig(dbPath string, configData *config.ConfigData) error {
	provider, err := config.NewSQLiteProvider(dbPath)
	if err != nil {
		return fmt.Errorf("failed to create SQLite provider: %w", err)
	}
	defer provider.Close()

	fmt.Printf("  Inserting %d controllers...\n", len(configData.Controllers))
	return provider.SaveConfig(configData)
}

func printConfigSummary(configData *config.ConfigData) {
	d := configData.Dataset
	fmt.Println("\nConfiguration Summary:")
	fmt.Printf("Dataset:\n")
	fmt.Printf("  - path: %s\n", d.Path)
	fmt.Printf("  - columns: timestamp=%s volume=%s weather=%s\n", d.TimestampColumn, d.VolumeColumn, d.WeatherColumn)
	fmt.Printf("  - location: %s, delimiter: %q\n", d.Location, d.Delimiter)

	if configData.Logging.File != "" {
		fmt.Printf("\nLogging:\n  - file: %s (%d MB, %d backups, %d days)\n",
			configData.Logging.File, configData.Logging.MaxSizeMB, configData.Logging.MaxBackups, configData.Logging.MaxAgeDays)
	}

	fmt.Printf("\nControllers (%d):\n", len(configData.Controllers))
	for _, c := range configData.Controllers {
		switch {
		case c.Dashboard != nil:
			fmt.Printf("  - %s on %s:%d\n", c.Type, c.Dashboard.ListenAddr, c.Dashboard.Port)
		case c.Metrics != nil:
			fmt.Printf("  - %s on %s:%d\n", c.Type, c.Metrics.ListenAddr, c.Metrics.Port)
		default:
			fmt.Printf("  - %s\n", c.Type)
		}
	}
}
