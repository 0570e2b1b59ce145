// Package main provides the schema migration CLI for TraceLens. The SQL
// files are embedded in the binary, so the tool deploys as a single
// artifact with no files on disk.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
)

// Set at build time through -ldflags.
var (
	version = "1.0.0-dev"
	commit  = "unknown"
)

const toolName = "migrator"

func main() {
	help := flag.Bool("help", false, "show usage")
	showVersion := flag.Bool("version", false, "show version information")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s (%s) - TraceLens schema migration tool\n", toolName, version, commit)

		return
	}

	if *help || flag.NArg() != 1 {
		printUsage()
		os.Exit(2)
	}

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	log.Printf("Using %s", cfg)

	runner, err := NewRunner(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize migration runner: %v", err)
	}

	defer func() {
		_ = runner.Close()
	}()

	command := flag.Arg(0)
	if err := runCommand(runner, command); err != nil {
		log.Fatalf("Command %s failed: %v", command, err)
	}
}

func runCommand(runner *Runner, command string) error {
	switch command {
	case "up":
		return runner.Up()
	case "down":
		return runner.Down()
	case "status":
		return runner.Status()
	case "version":
		return runner.Version()
	case "drop":
		if !confirmDrop(os.Stdin) {
			fmt.Println("Cancelled.")

			return nil
		}

		return runner.Drop()
	default:
		printUsage()

		return fmt.Errorf("unknown command: %s", command)
	}
}

// confirmDrop reads a y/N answer before the destructive drop command runs.
func confirmDrop(in *os.File) bool {
	fmt.Print("This drops every table in the database. Continue? (y/N): ")

	var answer string

	_, _ = fmt.Fscanln(in, &answer)

	return answer == "y" || answer == "Y"
}

func printUsage() {
	fmt.Printf(`%s v%s - TraceLens schema migration tool

Usage:
    %s [flags] COMMAND

Commands:
    up      apply all pending migrations
    down    roll back the last migration
    status  show schema version and pending migrations
    version show the current schema version
    drop    drop all tables (asks for confirmation)

Flags:
    --help     show this message
    --version  show version information

Environment:
    DATABASE_URL     PostgreSQL connection string (required)
    MIGRATION_TABLE  migration tracking table (default: schema_migrations)
`, toolName, version, toolName)
}
