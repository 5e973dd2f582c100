package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ontocat/ontocat/internal/config"
	"github.com/ontocat/ontocat/internal/manifest"
	"github.com/ontocat/ontocat/internal/store"
	"github.com/spf13/cobra"
)

var initBase string

// projectSubdirs is the project skeleton, one directory per concern.
var projectSubdirs = []string{
	"informants", "ontology", "data", "src", "archive", "log", "controller",
}

var initCmd = &cobra.Command{
	Use:   "init <name>",
	Short: "Scaffold a new project directory",
	Long: `Init creates the project skeleton: the standard subdirectories, a
starter ontology manifest, an empty record store snapshot, a project
configuration file and a metadata file recording what was laid out.

The skeleton:
  informants/   record store snapshots
  ontology/     type manifests
  data/         artifact payloads
  src/          project scripts
  archive/      retired snapshots
  log/          accession journal
  controller/   catalog database

Example:
  ontocat init sequencing_run_7 --base ~/projects`,
	Args: cobra.ExactArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initBase, "base", ".",
		"Directory the project is created under")

	rootCmd.AddCommand(initCmd)
}

// projectMetadata is the metadata.yaml shape: enough to rediscover the
// project layout without parsing the config.
type projectMetadata struct {
	ProjectName    string            `yaml:"project_name"`
	DateOfCreation string            `yaml:"date_of_creation"`
	Paths          map[string]string `yaml:"paths"`
}

func runInit(cmd *cobra.Command, args []string) error {
	name := args[0]
	projectDir := filepath.Join(initBase, name)

	metadataPath := filepath.Join(projectDir, "metadata.yaml")
	if _, err := os.Stat(metadataPath); err == nil {
		return fmt.Errorf("project '%s' is already initialized (%s exists)", name, metadataPath)
	}

	for _, subdir := range projectSubdirs {
		if err := os.MkdirAll(filepath.Join(projectDir, subdir), 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", subdir, err)
		}
	}

	// Paths are stored relative to the project directory so the tree can
	// be moved as a whole.
	manifestRel := filepath.Join("ontology", name+"_ontology.yaml")
	storeRel := filepath.Join("informants", "store.json")
	catalogRel := filepath.Join("controller", "ontocat.db")
	accessionRel := filepath.Join("log", "accession_record.json")

	if err := manifest.Starter(name).Save(filepath.Join(projectDir, manifestRel)); err != nil {
		return fmt.Errorf("failed to write starter manifest: %w", err)
	}

	if err := store.New(nil).Save(filepath.Join(projectDir, storeRel)); err != nil {
		return fmt.Errorf("failed to write store snapshot: %w", err)
	}

	cfg := config.DefaultConfig()
	cfg.Catalog.Path = catalogRel
	cfg.Ontology.Manifest = manifestRel
	cfg.Ontology.Root = manifest.DefaultRoot
	cfg.Ontology.Store = storeRel
	cfg.Accession.Path = accessionRel
	if err := writeYAML(filepath.Join(projectDir, "ontocat.yaml"), cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	meta := projectMetadata{
		ProjectName:    name,
		DateOfCreation: time.Now().Format(time.RFC3339),
		Paths: map[string]string{
			"manifest":  manifestRel,
			"store":     storeRel,
			"catalog":   catalogRel,
			"accession": accessionRel,
		},
	}
	if err := writeYAML(metadataPath, meta); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	fmt.Fprintf(outputWriter, "\n=== Project Initialized ===\n")
	fmt.Fprintf(outputWriter, "Project: %s\n", name)
	fmt.Fprintf(outputWriter, "Directory: %s\n", projectDir)
	fmt.Fprintf(outputWriter, "Manifest: %s\n", manifestRel)
	fmt.Fprintf(outputWriter, "Store: %s\n", storeRel)
	fmt.Fprintf(outputWriter, "Config: ontocat.yaml\n")
	fmt.Fprintf(outputWriter, "\nNext: cd %s && ontocat build\n", projectDir)

	return nil
}

func writeYAML(path string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
