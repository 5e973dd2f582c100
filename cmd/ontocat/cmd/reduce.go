package cmd

import (
	"fmt"
	"strings"

	"github.com/ontocat/ontocat/internal/accession"
	"github.com/ontocat/ontocat/internal/catalog"
	"github.com/ontocat/ontocat/internal/config"
	"github.com/ontocat/ontocat/internal/database"
	"github.com/ontocat/ontocat/internal/informant"
	"github.com/ontocat/ontocat/internal/logger"
	"github.com/ontocat/ontocat/internal/render"
	"github.com/spf13/cobra"
)

var (
	reduceApply    bool
	reduceExplain  bool
	reduceSnapshot string
)

var reduceCmd = &cobra.Command{
	Use:   "reduce <record>",
	Short: "Drop redundant references from a stored record",
	Long: `Reduce walks the reference graph under a record and reports which of
its direct references are reachable again through another reference.
Those references are redundant: dropping them loses no provenance.

By default nothing is written. With --apply the record's reference list
is rewritten to the reduced form and the store is saved back to where
it came from. With --explain the full reference tree is printed so the
redundancy is visible.

Examples:
  ontocat reduce experiment_042 --explain
  ontocat reduce experiment_042 --apply`,
	Args: cobra.ExactArgs(1),
	RunE: runReduce,
}

func init() {
	reduceCmd.Flags().BoolVar(&reduceApply, "apply", false,
		"Rewrite the reference list and persist the store")

	reduceCmd.Flags().BoolVar(&reduceExplain, "explain", false,
		"Print the reference tree under the record")

	reduceCmd.Flags().StringVar(&reduceSnapshot, "snapshot", "",
		"Operate on a JSON store snapshot instead of the catalog")

	rootCmd.AddCommand(reduceCmd)
}

func runReduce(cmd *cobra.Command, args []string) error {
	name := args[0]
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

	s, cat, cleanup, err := openStore(ctx, cfg, log, reduceSnapshot)
	if err != nil {
		return err
	}
	defer cleanup()

	row, ok := s.Get(name)
	if !ok {
		return fmt.Errorf("record '%s' not found in store", name)
	}

	// The tree is built before the rewrite so it shows the references
	// being judged.
	var tree *informant.LineageNode
	if reduceExplain {
		tree = informant.Lineage(row.Record, s)
	}

	before := len(row.Record.References)
	dropped := informant.ApplyReduce(row.Record, s)
	after := len(row.Record.References)

	if reduceApply {
		if reduceSnapshot != "" {
			if err := s.Save(reduceSnapshot); err != nil {
				return fmt.Errorf("failed to save store snapshot: %w", err)
			}
		} else {
			method, err := verifyMethod(cfg)
			if err != nil {
				return err
			}
			if _, err := cat.SaveStore(ctx, s, catalog.SaveOptions{Verify: method}); err != nil {
				return fmt.Errorf("failed to save store: %w", err)
			}
		}

		// Journal the rewrite
		if _, err := journalFor(cfg, log).Append(actorFor(cfg), accession.Entry{
			Action:  accession.ActionReduce,
			Records: []string{name},
		}); err != nil {
			log.Warnw("failed to journal reduce", "error", err)
		}
	}

	// Display results
	if reduceApply {
		fmt.Fprintf(outputWriter, "\n=== Reduce Complete ===\n")
	} else {
		fmt.Fprintf(outputWriter, "\n=== Reduce Preview ===\n")
	}
	fmt.Fprintf(outputWriter, "Record: %s\n", name)
	fmt.Fprintf(outputWriter, "References: %d -> %d\n", before, after)
	if len(dropped) > 0 {
		fmt.Fprintf(outputWriter, "Dropped: %s\n", strings.Join(dropped, ", "))
	} else {
		fmt.Fprintf(outputWriter, "Dropped: none, the reference list is already minimal\n")
	}

	if reduceExplain {
		r := render.New(!noColor)
		fmt.Fprintf(outputWriter, "\nReference tree:\n%s", r.LineageTree(tree))
	}

	if !reduceApply {
		fmt.Fprintf(outputWriter, "\nℹ️  No data was modified. Pass --apply to rewrite the reference list.\n")
	}

	return nil
}
