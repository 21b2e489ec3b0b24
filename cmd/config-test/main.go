package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"reflect"

	"github.com/chrissnell/trafficdash/internal/loader"
	"github.com/chrissnell/trafficdash/pkg/config"
	"go.uber.org/zap"
)

func main() {
	var (
		yamlFile    = flag.String("yaml", "", "Path to YAML configuration file")
		sqliteFile  = flag.String("sqlite", "", "Path to SQLite configuration file")
		loadDataset = flag.Bool("load-dataset", false, "Also parse the configured dataset")
	)
	flag.Parse()

	if *yamlFile == "" && *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s [-yaml <config.yaml>] [-sqlite <config.db>] [-load-dataset]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("Configuration Test")
	fmt.Println("==================")

	var yamlConfig, sqliteConfig *config.ConfigData
	failed := false

	if *yamlFile != "" {
		fmt.Printf("Loading YAML configuration: %s\n", *yamlFile)
		cfg, err := config.NewYAMLProvider(*yamlFile).LoadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading YAML config: %v\n", err)
			os.Exit(1)
		}
		yamlConfig = cfg
		failed = !check("YAML", cfg) || failed
	}

	if *sqliteFile != "" {
		fmt.Printf("Loading SQLite configuration: %s\n", *sqliteFile)
		provider, err := config.NewSQLiteProvider(*sqliteFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating SQLite provider: %v\n", err)
			os.Exit(1)
		}
		cfg, err := provider.LoadConfig()
		provider.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading SQLite config: %v\n", err)
			os.Exit(1)
		}
		sqliteConfig = cfg
		failed = !check("SQLite", cfg) || failed
	}

	if yamlConfig != nil && sqliteConfig != nil {
		fmt.Println("\nComparison Results:")
		failed = !compare(yamlConfig, sqliteConfig) || failed
	}

	if *loadDataset {
		cfg := yamlConfig
		if cfg == nil {
			cfg = sqliteConfig
		}
		failed = !checkDataset(cfg.Dataset) || failed
	}

	if failed {
		fmt.Println("\nTest failed")
		os.Exit(1)
	}
	fmt.Println("\nTest completed!")
}

func check(name string, cfg *config.ConfigData) bool {
	if err := cfg.Validate(); err != nil {
		fmt.Printf("✗ %s configuration invalid: %v\n", name, err)
		return false
	}
	fmt.Printf("✓ %s configuration valid (%d controllers)\n", name, len(cfg.Controllers))
	return true
}

func compare(yaml, sqlite *config.ConfigData) bool {
	ok := true
	report := func(section string, a, b interface{}) {
		if reflect.DeepEqual(a, b) {
			fmt.Printf("✓ %s matches\n", section)
			return
		}
		ok = false
		fmt.Printf("✗ %s differs\n  YAML:   %+v\n  SQLite: %+v\n", section, a, b)
	}

	report("Dataset", yaml.Dataset, sqlite.Dataset)
	report("Logging", yaml.Logging, sqlite.Logging)

	if len(yaml.Controllers) != len(sqlite.Controllers) {
		fmt.Printf("✗ Controller count mismatch - YAML: %d, SQLite: %d\n", len(yaml.Controllers), len(sqlite.Controllers))
		return false
	}
	sqliteByType := make(map[string]config.ControllerData, len(sqlite.Controllers))
	for _, c := range sqlite.Controllers {
		sqliteByType[c.Type] = c
	}
	for _, c := range yaml.Controllers {
		report("Controller "+c.Type, c, sqliteByType[c.Type])
	}
	return ok
}

func checkDataset(dc config.DatasetData) bool {
	l, err := loader.NewCSVLoader(dc, nil, zap.NewNop().Sugar())
	if err != nil {
		fmt.Printf("✗ Dataset configuration: %v\n", err)
		return false
	}
	ds, err := l.Load(context.Background())
	if err != nil {
		fmt.Printf("✗ Dataset %s: %v\n", dc.Path, err)
		return false
	}
	fmt.Printf("✓ Dataset %s: %d rows, years %v, %d weather labels\n", dc.Path, ds.Len(), ds.Years(), len(ds.WeatherLabels()))
	return true
}
