package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/chrissnell/trafficdash/internal/log"
	"github.com/chrissnell/trafficdash/pkg/config"
	"github.com/chrissnell/trafficdash/pkg/migrate"
	_ "modernc.org/sqlite" // SQLite driver
)

func main() {
	var (
		dbDSN          = flag.String("dsn", "", "SQLite configuration database path")
		migrationDir   = flag.String("dir", "", "Migration directory (default: the embedded configuration schema)")
		migrationTable = flag.String("table", migrate.DefaultTable, "Migration table name, used with -dir")
		command        = flag.String("command", "up", "Migration command: up, down, to, version, status")
		targetVersion  = flag.String("target", "", "Target version for down/to commands")
		debug          = flag.Bool("debug", false, "Log each applied migration")
		helpFlag       = flag.Bool("help", false, "Show help")
	)

	flag.Parse()

	if *helpFlag {
		showHelp()
		return
	}

	if *dbDSN == "" {
		fmt.Fprintf(os.Stderr, "Error: -dsn flag is required\n")
		showHelp()
		os.Exit(1)
	}

	if err := log.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := sql.Open("sqlite", *dbDSN)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	var migrator *migrate.Migrator
	if *migrationDir != "" {
		migrator = migrate.NewMigrator(db, migrate.NewFSProvider(os.DirFS(*migrationDir), "."), *migrationTable, log.GetSugaredLogger())
	} else {
		migrator = config.NewMigrator(db, log.GetSugaredLogger())
	}

	switch *command {
	case "up":
		err = migrator.Up()
	case "down":
		err = migrator.Down(target(*targetVersion, *command))
	case "to":
		err = migrator.To(target(*targetVersion, *command))
	case "version":
		version, err := migrator.Version()
		if err != nil {
			log.Fatalf("Failed to get current version: %v", err)
		}
		fmt.Printf("Current version: %d\n", version)
		return
	case "status":
		err = showStatus(migrator)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", *command)
		showHelp()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("Migration command failed: %v", err)
	}

	fmt.Println("Migration completed successfully")
}

func target(raw, command string) int {
	if raw == "" {
		fmt.Fprintf(os.Stderr, "Error: -target flag is required for %s command\n", command)
		os.Exit(1)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Fatalf("Invalid target version: %v", err)
	}
	return v
}

func showStatus(migrator *migrate.Migrator) error {
	currentVersion, err := migrator.Version()
	if err != nil {
		return err
	}

	pending, err := migrator.Pending()
	if err != nil {
		return fmt.Errorf("failed to get pending migrations: %w", err)
	}

	fmt.Printf("Current version: %d\n", currentVersion)
	fmt.Printf("Pending migrations: %d\n", len(pending))

	if len(pending) > 0 {
		fmt.Println("\nPending migrations:")
		for _, migration := range pending {
			fmt.Printf("  %d: %s\n", migration.Version, migration.Name)
		}
	}

	return nil
}

func showHelp() {
	fmt.Println("Configuration Database Migration Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  migrate [flags]")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -dsn string        SQLite configuration database path (required)")
	fmt.Println("  -dir string        Migration directory (default: embedded schema)")
	fmt.Println("  -table string      Migration table name, used with -dir (default: schema_migrations)")
	fmt.Println("  -command string    Migration command (default: up)")
	fmt.Println("  -target string     Target version for down/to commands")
	fmt.Println("  -debug             Log each applied migration")
	fmt.Println("  -help              Show this help message")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  up                 Apply all pending migrations")
	fmt.Println("  down               Roll back to target version")
	fmt.Println("  to                 Migrate to specific version (up or down)")
	fmt.Println("  version            Show current migration version")
	fmt.Println("  status             Show migration status")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  migrate -dsn config.db -command status")
	fmt.Println("  migrate -dsn config.db -command down -target 1")
}
