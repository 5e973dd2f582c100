package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/ontocat/ontocat/internal/accession"
	"github.com/ontocat/ontocat/internal/catalog"
	"github.com/ontocat/ontocat/internal/config"
	"github.com/ontocat/ontocat/internal/database"
	"github.com/ontocat/ontocat/internal/logger"
	"github.com/ontocat/ontocat/internal/manifest"
	"github.com/ontocat/ontocat/internal/ontology"
	"github.com/ontocat/ontocat/internal/predicate"
	"github.com/ontocat/ontocat/internal/render"
	"github.com/ontocat/ontocat/internal/store"
	"github.com/spf13/cobra"
)

var (
	filterParallel bool
	filterSnapshot string
)

var filterCmd = &cobra.Command{
	Use:   "filter <expression>",
	Short: "Filter the record store with an attribute expression",
	Long: `Filter evaluates a boolean expression over every record in the store
and prints the matching rows in store order.

Expressions reference record attributes with @, combine clauses with &
(and), | (or) and ! (not), and compare with ==, !=, <, <=, >, >=, in,
contains, startswith and endswith. A clause over an attribute a record
does not carry takes the --on-missing constant (false by default).

By default records come from the catalog written by a previous build;
--snapshot reads a JSON store snapshot instead. With --parallel the
store is cut into chunks evaluated concurrently; the result order is
the same either way.

Examples:
  ontocat filter "@source_depth > 1"
  ontocat filter "(@type == 'Dataset') & ('validated' in @tags)" --parallel`,
	Args: cobra.ExactArgs(1),
	RunE: runFilter,
}

func init() {
	filterCmd.Flags().BoolVar(&filterParallel, "parallel", false,
		"Evaluate the store in parallel chunks")

	filterCmd.Flags().StringVar(&filterSnapshot, "snapshot", "",
		"Read records from a JSON store snapshot instead of the catalog")

	rootCmd.AddCommand(filterCmd)
}

func runFilter(cmd *cobra.Command, args []string) error {
	expression := args[0]
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

	ctx := database.SetupSignalHandler()

	s, _, cleanup, err := openStore(ctx, cfg, log, filterSnapshot)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := store.FilterOptions{
		OnMissing: cfg.Filter.OnMissing,
		Registry:  fieldRegistry(cfg, log),
		Workers:   cfg.Filter.Workers,
		Chunks:    cfg.Filter.Chunks,
	}

	var matched []*store.Row
	if filterParallel {
		matched, err = s.FilterParallel(ctx, expression, opts)
	} else {
		matched, err = s.Filter(expression, opts)
	}
	if err != nil {
		var pe *predicate.ParseError
		if errors.As(err, &pe) {
			return fmt.Errorf("bad expression:\n  %s\n%w", pe.Indicate(expression), err)
		}
		return err
	}

	// Journal the accession of the matched records
	names := make([]string, len(matched))
	for i, row := range matched {
		names[i] = row.Name
	}
	if _, err := journalFor(cfg, log).Append(actorFor(cfg), accession.Entry{
		Action:  accession.ActionFilter,
		Records: names,
	}); err != nil {
		log.Warnw("failed to journal filter", "error", err)
	}

	r := render.New(!noColor)
	if len(matched) > 0 {
		fmt.Fprint(outputWriter, r.StoreTable(matched))
	}
	fmt.Fprintf(outputWriter, "\nMatched %d of %d row(s)\n", len(matched), s.Len())

	return nil
}

// openStore loads the record store from a snapshot path when given, and
// from the catalog otherwise. The returned cleanup closes whatever was
// opened; the catalog manager is returned for callers that write back.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger, snapshot string) (*store.Store, *catalog.Manager, func(), error) {
	if snapshot != "" {
		s := store.New(log)
		if err := s.Load(snapshot); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to load store snapshot: %w", err)
		}
		return s, nil, func() {}, nil
	}

	cat, err := catalog.Open(ctx, &cfg.Catalog, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	s, err := cat.LoadStore(ctx)
	if err != nil {
		cat.Close()
		return nil, nil, nil, fmt.Errorf("failed to load store: %w", err)
	}
	return s, cat, func() { cat.Close() }, nil
}

// fieldRegistry loads the configured manifest so filters can tell a
// declared-but-unset field from a missing one. Filters still work without
// a manifest; unset fields then count as missing.
func fieldRegistry(cfg *config.Config, log *logger.Logger) *ontology.TypeRegistry {
	if cfg.Ontology.Manifest == "" {
		return nil
	}
	m, err := manifest.Load(cfg.Ontology.Manifest)
	if err != nil {
		log.Warnw("manifest unavailable, field presence falls back to set attributes",
			"manifest", cfg.Ontology.Manifest, "error", err)
		return nil
	}
	reg, err := registryFor(cfg, m)
	if err != nil {
		log.Warnw("manifest unusable, field presence falls back to set attributes",
			"manifest", cfg.Ontology.Manifest, "error", err)
		return nil
	}
	return reg
}
