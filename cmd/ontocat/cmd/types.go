package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/ontocat/ontocat/internal/catalog"
	"github.com/ontocat/ontocat/internal/config"
	"github.com/ontocat/ontocat/internal/database"
	"github.com/ontocat/ontocat/internal/logger"
	"github.com/ontocat/ontocat/internal/manifest"
	"github.com/ontocat/ontocat/internal/ontology"
	"github.com/ontocat/ontocat/internal/render"
	"github.com/spf13/cobra"
)

// outputWriter is used for printing output, can be overridden in tests
var outputWriter io.Writer = os.Stdout

// setOutputWriter sets the output writer (used for testing)
func setOutputWriter(w io.Writer) {
	outputWriter = w
}

// resetOutputWriter resets output to stdout (used for testing)
func resetOutputWriter() {
	outputWriter = os.Stdout
}

var (
	typesByDepth      bool
	typesFromManifest bool
	typesManifest     string
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "Show the annotated type table",
	Long: `Types renders the ontology as a table: one row per type with its
parents, source depth, sink depth, and nearest-sink children.

By default the table comes from the catalog written by a previous build.
With --from-manifest the graph is built in memory from the manifest
instead, without touching the catalog.

Example:
  ontocat types --config ontocat.yaml --by-depth`,
	RunE: runTypes,
}

func init() {
	typesCmd.Flags().BoolVar(&typesByDepth, "by-depth", false,
		"Sort types by source depth instead of registration order")

	typesCmd.Flags().BoolVar(&typesFromManifest, "from-manifest", false,
		"Build the graph from the manifest instead of loading the catalog")

	typesCmd.Flags().StringVarP(&typesManifest, "manifest", "m", "",
		"Ontology manifest path (overrides ontology.manifest)")

	rootCmd.AddCommand(typesCmd)
}

func runTypes(cmd *cobra.Command, args []string) error {
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

	var g *ontology.Graph
	if typesFromManifest {
		g, err = graphFromManifest(cfg, typesManifest)
		if err != nil {
			return err
		}
	} else {
		ctx := database.SetupSignalHandler()
		cat, err := catalog.Open(ctx, &cfg.Catalog, log)
		if err != nil {
			return fmt.Errorf("failed to open catalog: %w", err)
		}
		defer cat.Close()

		g, err = cat.LoadGraph(ctx)
		if err != nil {
			return fmt.Errorf("failed to load graph: %w", err)
		}
	}

	r := render.New(!noColor)
	fmt.Fprint(outputWriter, r.TypeTable(g, typesByDepth))
	fmt.Fprintf(outputWriter, "\nTotal: %d type(s), %d sink(s)\n", g.NodeCount(), len(g.Sinks()))

	return nil
}

// graphFromManifest builds the annotated graph in memory, bypassing the
// catalog.
func graphFromManifest(cfg *config.Config, flagValue string) (*ontology.Graph, error) {
	mPath, err := manifestPath(cfg, flagValue)
	if err != nil {
		return nil, err
	}
	m, err := manifest.Load(mPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	reg, err := registryFor(cfg, m)
	if err != nil {
		return nil, fmt.Errorf("failed to build type registry: %w", err)
	}
	g, err := ontology.BuildFromRegistry(reg)
	if err != nil {
		return nil, fmt.Errorf("graph build failed: %w", err)
	}
	return g, nil
}
