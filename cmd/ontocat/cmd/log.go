package cmd

import (
	"fmt"

	"github.com/ontocat/ontocat/internal/accession"
	"github.com/ontocat/ontocat/internal/config"
	"github.com/ontocat/ontocat/internal/render"
	"github.com/spf13/cobra"
)

var (
	logLimit int
	logActor string
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent accession journal entries",
	Long: `Log prints the most recent accession journal entries, newest first.
Every mutating command appends to the journal, so this is the audit
trail of what happened to the project.

Example:
  ontocat log --config ontocat.yaml --limit 10`,
	RunE: runLog,
}

func init() {
	logCmd.Flags().IntVar(&logLimit, "limit", 20,
		"Maximum number of entries to show")

	logCmd.Flags().StringVar(&logActor, "actor", "",
		"Show only one actor's entries")

	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	j := journalFor(cfg, nil)

	var entries []accession.Entry
	if logActor != "" {
		entries = j.Entries(logActor)
		if logLimit > 0 && len(entries) > logLimit {
			entries = entries[:logLimit]
		}
	} else {
		entries = j.Recent(logLimit)
	}

	if len(entries) == 0 {
		cmd.Printf("No accession entries in %s\n", cfg.Accession.Path)
		return nil
	}

	r := render.New(!noColor)
	cmd.Print(r.AccessionTable(entries))
	cmd.Printf("\nTotal: %d entry(ies)\n", len(entries))
	return nil
}
