package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/ontocat/ontocat/internal/config"
	"github.com/ontocat/ontocat/internal/database"
	"github.com/ontocat/ontocat/internal/logger"
	"github.com/ontocat/ontocat/internal/manifest"
	"github.com/ontocat/ontocat/internal/ontology"
	"github.com/ontocat/ontocat/internal/store"
	"github.com/spf13/cobra"
)

var validateManifest string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration, manifest and store consistency",
	Long: `Validate checks the configuration file, the ontology manifest and the
record store for problems before they surface mid-build.

Checks performed:
  - Configuration syntax and required fields
  - Manifest syntax, unknown parents and inheritance cycles
  - Store snapshot records against the declared types
  - Dangling references between stored records
  - Catalog connectivity

Nothing is written. Example:
  ontocat validate --config ontocat.yaml`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateManifest, "manifest", "m", "",
		"Ontology manifest path (overrides ontology.manifest)")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply CLI overrides
	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat,
		overrides.Workers, overrides.Chunks,
		overrides.OnMissing, overrides.SkipVerify)

	// Initialize logger
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Info("Starting validation checks...")

	fmt.Printf("\n=== Configuration Validation ===\n")
	fmt.Printf("Config file: %s\n\n", configFile)

	hasErrors := false
	if err := cfg.Validate(); err != nil {
		fmt.Printf("❌ Configuration invalid: %v\n", err)
		hasErrors = true
	} else {
		fmt.Printf("✅ Configuration valid\n")
	}

	// Manifest and graph checks. The registry survives this section so the
	// store section can check record types against it.
	var reg *ontology.TypeRegistry
	mPath, pathErr := manifestPath(cfg, validateManifest)
	if pathErr != nil {
		fmt.Printf("\n--- Ontology ---\n")
		fmt.Printf("⚠️  No manifest configured, skipping ontology checks\n")
	} else {
		fmt.Printf("\n--- Ontology ---\n")
		fmt.Printf("Manifest: %s\n", mPath)

		m, err := manifest.Load(mPath)
		if err != nil {
			fmt.Printf("❌ Manifest invalid: %v\n", err)
			hasErrors = true
		} else {
			fmt.Printf("Types declared: %d\n", len(m.Types))
			reg, err = registryFor(cfg, m)
			if err != nil {
				fmt.Printf("❌ Type registration failed: %v\n", err)
				hasErrors = true
				reg = nil
			} else if g, err := ontology.BuildFromRegistry(reg); err != nil {
				fmt.Printf("❌ Graph build failed: %v\n", err)
				hasErrors = true
			} else {
				fmt.Printf("✅ Graph built: %d types, %d edges, %d sinks\n",
					g.NodeCount(), g.EdgeCount(), len(g.Sinks()))
			}
		}
	}

	// Store snapshot checks
	if cfg.Ontology.Store != "" {
		fmt.Printf("\n--- Store ---\n")
		fmt.Printf("Snapshot: %s\n", cfg.Ontology.Store)

		if _, err := os.Stat(cfg.Ontology.Store); err != nil {
			fmt.Printf("⚠️  Snapshot not readable, skipping store checks: %v\n", err)
		} else {
			s := store.New(log)
			if err := s.Load(cfg.Ontology.Store); err != nil {
				fmt.Printf("❌ Snapshot invalid: %v\n", err)
				hasErrors = true
			} else {
				fmt.Printf("Rows: %d\n", s.Len())
				if unknown := unknownTypes(s, reg); reg == nil {
					fmt.Printf("⚠️  No type registry, skipping record type checks\n")
				} else if len(unknown) > 0 {
					fmt.Printf("❌ Records with undeclared types: %d (%s)\n", len(unknown), joinSample(unknown, 5))
					hasErrors = true
				} else {
					fmt.Printf("✅ All record types are declared\n")
				}
				if dangling := danglingReferences(s); len(dangling) > 0 {
					fmt.Printf("⚠️  Dangling references: %d (%s)\n", len(dangling), joinSample(dangling, 5))
				} else {
					fmt.Printf("✅ No dangling references\n")
				}
			}
		}
	}

	// Catalog connectivity
	fmt.Printf("\n--- Catalog ---\n")
	fmt.Printf("Driver: %s\n", cfg.Catalog.Driver)

	ctx := database.SetupSignalHandler()
	conn, err := database.NewManager(&cfg.Catalog)
	if err != nil {
		fmt.Printf("❌ Catalog configuration invalid: %v\n", err)
		hasErrors = true
	} else if err := conn.Connect(ctx); err != nil {
		fmt.Printf("❌ Catalog unreachable: %v\n", err)
		hasErrors = true
	} else {
		defer conn.Close()
		if err := conn.Ping(ctx); err != nil {
			fmt.Printf("❌ Catalog ping failed: %v\n", err)
			hasErrors = true
		} else {
			fmt.Printf("✅ Catalog reachable\n")
		}
	}

	fmt.Println()
	if hasErrors {
		return fmt.Errorf("validation failed")
	}

	fmt.Println("=== Validation Complete ===")
	fmt.Println("✅ All checks passed")
	return nil
}

// unknownTypes lists the names of stored records whose type is not in the
// registry, one entry per row. Nil registry reports nothing.
func unknownTypes(s *store.Store, reg *ontology.TypeRegistry) []string {
	if reg == nil {
		return nil
	}
	var out []string
	for _, row := range s.Rows() {
		if !reg.Has(row.Record.TypeName) {
			out = append(out, row.Name)
		}
	}
	return out
}

// danglingReferences lists "record -> reference" pairs whose reference
// resolves to no stored record.
func danglingReferences(s *store.Store) []string {
	var out []string
	for _, row := range s.Rows() {
		for _, ref := range row.Record.References {
			if !s.Has(ref) {
				out = append(out, row.Name+" -> "+ref)
			}
		}
	}
	return out
}

// joinSample renders up to n items, appending an ellipsis note for the
// rest.
func joinSample(items []string, n int) string {
	if len(items) <= n {
		return strings.Join(items, ", ")
	}
	return fmt.Sprintf("%s, and %d more", strings.Join(items[:n], ", "), len(items)-n)
}
