package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/ontocat/ontocat/internal/accession"
	"github.com/ontocat/ontocat/internal/catalog"
	"github.com/ontocat/ontocat/internal/config"
	"github.com/ontocat/ontocat/internal/database"
	"github.com/ontocat/ontocat/internal/logger"
	"github.com/ontocat/ontocat/internal/manifest"
	"github.com/ontocat/ontocat/internal/ontology"
	"github.com/ontocat/ontocat/internal/render"
	"github.com/ontocat/ontocat/internal/store"
	"github.com/ontocat/ontocat/internal/verifier"
	"github.com/spf13/cobra"
)

var (
	buildManifest  string
	buildWithStore bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the type graph and save it to the catalog",
	Long: `Build loads the ontology manifest, registers every declared type,
computes the depth metrics, and writes the annotated type graph to the
catalog.

The build process follows these steps:
  1. Load and validate the ontology manifest
  2. Register types and resolve source depths
  3. Wire parent/child edges and detect cycles
  4. Compute sink depths and nearest-sink children
  5. Write the graph to the catalog (verified unless skipped)

With --with-store the record store snapshot configured under
ontology.store is written to the catalog in the same run.

Example:
  ontocat build --config ontocat.yaml --manifest ontology/project_ontology.yaml`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildManifest, "manifest", "m", "",
		"Ontology manifest path (overrides ontology.manifest)")

	buildCmd.Flags().BoolVar(&buildWithStore, "with-store", false,
		"Also write the configured store snapshot to the catalog")

	rootCmd.AddCommand(buildCmd)
}

// registryFor builds a type registry from the manifest. A manifest without
// an explicit root adopts the configured root type name, so project
// configs and manifests only need to agree when both pin one.
func registryFor(cfg *config.Config, m *manifest.Manifest) (*ontology.TypeRegistry, error) {
	if m.Root == "" && cfg.Ontology.Root != "" {
		m.Root = cfg.Ontology.Root
	}
	return m.Registry()
}

// manifestPath resolves the manifest location: the command flag wins over
// the configuration.
func manifestPath(cfg *config.Config, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if cfg.Ontology.Manifest != "" {
		return cfg.Ontology.Manifest, nil
	}
	return "", fmt.Errorf("no ontology manifest configured (set ontology.manifest or pass --manifest)")
}

// verifyMethod resolves the post-write check from configuration and the
// --skip-verify override.
func verifyMethod(cfg *config.Config) (verifier.Method, error) {
	if cfg.Verification.SkipVerification {
		return verifier.MethodSkip, nil
	}
	return verifier.ParseMethod(cfg.Verification.Method)
}

// actorFor names the accession journal actor: the configured name, or the
// hostname when unset.
func actorFor(cfg *config.Config) string {
	if cfg.Accession.Actor != "" {
		return cfg.Accession.Actor
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "ontocat"
}

// journalFor opens the configured accession journal.
func journalFor(cfg *config.Config, log *logger.Logger) *accession.Journal {
	j := accession.New(cfg.Accession.Path, log)
	j.MaxEntries = cfg.Accession.MaxEntries
	return j
}

func runBuild(cmd *cobra.Command, args []string) error {
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

	mPath, err := manifestPath(cfg, buildManifest)
	if err != nil {
		return err
	}

	log.Infow("Starting ontology build",
		"manifest", mPath,
		"config", configFile,
	)

	start := time.Now()

	// Load the manifest and register every declared type
	m, err := manifest.Load(mPath)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}
	reg, err := registryFor(cfg, m)
	if err != nil {
		return fmt.Errorf("failed to build type registry: %w", err)
	}

	// Build the annotated graph (fails fast on unknown parents and cycles)
	g, err := ontology.BuildFromRegistry(reg)
	if err != nil {
		return fmt.Errorf("graph build failed: %w", err)
	}

	method, err := verifyMethod(cfg)
	if err != nil {
		return err
	}

	// A signal-aware context so an interrupted write rolls back
	ctx := database.SetupSignalHandler()

	cat, err := catalog.Open(ctx, &cfg.Catalog, log)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer cat.Close()

	graphStats, err := cat.SaveGraph(ctx, g, catalog.SaveOptions{Verify: method})
	if err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}

	var storeStats *verifier.Stats
	storeRows := 0
	if buildWithStore {
		if cfg.Ontology.Store == "" {
			return fmt.Errorf("--with-store requires ontology.store to be configured")
		}
		s := store.New(log)
		if err := s.Load(cfg.Ontology.Store); err != nil {
			return fmt.Errorf("failed to load store snapshot: %w", err)
		}
		storeRows = s.Len()
		storeStats, err = cat.SaveStore(ctx, s, catalog.SaveOptions{Verify: method})
		if err != nil {
			return fmt.Errorf("failed to save store: %w", err)
		}
	}

	// Journal the build
	if _, err := journalFor(cfg, log).Append(actorFor(cfg), accession.Entry{
		Action:   accession.ActionBuild,
		Ontology: m.Ontology,
	}); err != nil {
		log.Warnw("failed to journal build", "error", err)
	}

	// Display results
	r := render.New(!noColor)
	fmt.Fprintf(outputWriter, "\n=== Build Complete ===\n")
	fmt.Fprintf(outputWriter, "Ontology: %s\n", m.Ontology)
	fmt.Fprintf(outputWriter, "Types: %d (%d sinks)\n", g.NodeCount(), len(g.Sinks()))
	fmt.Fprintf(outputWriter, "Edges: %d\n", g.EdgeCount())
	if buildWithStore {
		fmt.Fprintf(outputWriter, "Store rows: %d\n", storeRows)
	}
	fmt.Fprintf(outputWriter, "Duration: %s\n", time.Since(start).Round(time.Millisecond))
	if graphStats != nil {
		fmt.Fprint(outputWriter, r.VerificationSummary(graphStats))
	}
	if storeStats != nil {
		fmt.Fprint(outputWriter, r.VerificationSummary(storeStats))
	}

	return nil
}
