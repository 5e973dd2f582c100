package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile    string
	logLevel   string
	logFormat  string
	workers    int
	chunks     int
	onMissing  bool
	skipVerify bool
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "ontocat",
	Short: "Ontology-backed catalog for informant records",
	Long: `A CLI tool for maintaining typed catalogs of informant records:
declared type ontologies, record collections, and their persistence.

Features:
  - Type ontologies built from YAML manifests, with cycle detection
  - Depth metrics per type (source depth, sink depth, nearest sinks)
  - Attribute-expression filtering, sequential or parallel
  - Reference redundancy reduction with lineage explanations
  - Catalog persistence on SQLite or MySQL with write verification`,
	Version: Version,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Config file flag
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "ontocat.yaml",
		"Path to configuration file")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Filter overrides
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0,
		"Override parallel filter worker count")
	rootCmd.PersistentFlags().IntVar(&chunks, "chunks", 0,
		"Override parallel filter chunk count")
	rootCmd.PersistentFlags().BoolVar(&onMissing, "on-missing", false,
		"Treat clauses over absent attributes as true instead of false")

	// Safety overrides
	rootCmd.PersistentFlags().BoolVar(&skipVerify, "skip-verify", false,
		"Skip catalog verification after writes")

	// Output
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"Disable colored output")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel   string
	LogFormat  string
	Workers    int
	Chunks     int
	OnMissing  bool
	SkipVerify bool
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:   logLevel,
		LogFormat:  logFormat,
		Workers:    workers,
		Chunks:     chunks,
		OnMissing:  onMissing,
		SkipVerify: skipVerify,
	}
}
