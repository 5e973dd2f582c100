package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ontocat/ontocat/internal/informant"
	"github.com/ontocat/ontocat/internal/store"
)

func TestFilterCommandStructure(t *testing.T) {
	assert.NotNil(t, filterCmd)
	assert.Equal(t, "filter <expression>", filterCmd.Use)
	assert.NotEmpty(t, filterCmd.Short)
	assert.NotEmpty(t, filterCmd.Long)
	assert.NotNil(t, filterCmd.RunE)
}

func TestFilterCommandFlags(t *testing.T) {
	flags := filterCmd.Flags()

	parallelFlag := flags.Lookup("parallel")
	assert.NotNil(t, parallelFlag)
	assert.Equal(t, "false", parallelFlag.DefValue)

	snapshotFlag := flags.Lookup("snapshot")
	assert.NotNil(t, snapshotFlag)
	assert.Equal(t, "", snapshotFlag.DefValue)
}

func TestFilterIsAddedToRoot(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "filter" {
			found = true
			break
		}
	}
	assert.True(t, found, "filter command should be added to root command")
}

func TestFilterCommandExample(t *testing.T) {
	assert.Contains(t, filterCmd.Long, "Example")
	assert.Contains(t, filterCmd.Long, "ontocat filter")
}

// writeTestSnapshot builds a two-row store snapshot: a deep tagged dataset
// and a shallow untagged directory.
func writeTestSnapshot(t *testing.T, dir string) string {
	t.Helper()

	a, err := informant.New("Dataset", "run_042",
		informant.WithTags("validated"),
		informant.WithReferences("raw_001"))
	if err != nil {
		t.Fatalf("Failed to build record: %v", err)
	}
	a.SourceDepth = 2

	b, err := informant.New("Directory", "raw_001")
	if err != nil {
		t.Fatalf("Failed to build record: %v", err)
	}

	s := store.New(nil)
	if _, err := s.Append([]*informant.Record{a, b}, store.AppendOptions{}); err != nil {
		t.Fatalf("Failed to append records: %v", err)
	}

	path := filepath.Join(dir, "store.json")
	if err := s.Save(path); err != nil {
		t.Fatalf("Failed to save snapshot: %v", err)
	}
	return path
}

func TestRunFilter_Snapshot(t *testing.T) {
	origCfgFile := cfgFile
	origSnapshot := filterSnapshot
	origParallel := filterParallel
	defer func() {
		cfgFile = origCfgFile
		filterSnapshot = origSnapshot
		filterParallel = origParallel
	}()

	tmpDir := t.TempDir()
	accessionPath := filepath.Join(tmpDir, "accession_record.json")
	cfgFile = createTempTestConfig(t, tmpDir, map[string]interface{}{
		"accession": map[string]interface{}{
			"path": accessionPath,
		},
	})
	filterSnapshot = writeTestSnapshot(t, tmpDir)

	tests := []struct {
		name       string
		expression string
		parallel   bool
		want       []string
	}{
		{
			name:       "depth comparison",
			expression: "@source_depth > 1",
			want:       []string{"run_042", "Matched 1 of 2 row(s)"},
		},
		{
			name:       "tag membership",
			expression: "'validated' in @tags",
			want:       []string{"run_042", "Matched 1 of 2 row(s)"},
		},
		{
			name:       "type and negation",
			expression: "(@type == 'Directory') & !('validated' in @tags)",
			want:       []string{"raw_001", "Matched 1 of 2 row(s)"},
		},
		{
			name:       "no matches",
			expression: "@type == 'Model'",
			want:       []string{"Matched 0 of 2 row(s)"},
		},
		{
			name:       "parallel keeps order",
			expression: "@source_depth >= 0",
			parallel:   true,
			want:       []string{"run_042", "raw_001", "Matched 2 of 2 row(s)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filterParallel = tt.parallel

			var buf bytes.Buffer
			setOutputWriter(&buf)
			defer resetOutputWriter()

			err := runFilter(filterCmd, []string{tt.expression})
			assert.NoError(t, err)

			output := buf.String()
			for _, want := range tt.want {
				assert.Contains(t, output, want)
			}
		})
	}

	// Every run journals the accession
	data, err := os.ReadFile(accessionPath)
	assert.NoError(t, err)
	assert.Contains(t, string(data), `"filter"`)
	assert.Contains(t, string(data), "run_042")
}

func TestRunFilter_BadExpression(t *testing.T) {
	origCfgFile := cfgFile
	origSnapshot := filterSnapshot
	defer func() {
		cfgFile = origCfgFile
		filterSnapshot = origSnapshot
	}()

	tmpDir := t.TempDir()
	cfgFile = createTempTestConfig(t, tmpDir, map[string]interface{}{})
	filterSnapshot = writeTestSnapshot(t, tmpDir)

	var buf bytes.Buffer
	setOutputWriter(&buf)
	defer resetOutputWriter()

	err := runFilter(filterCmd, []string{"@source_depth >"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "bad expression")
}

// TestFilterCmd_Execute_NoArgs tests that the expression argument is required
func TestFilterCmd_Execute_NoArgs(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"filter"})
	err := rootCmd.Execute()
	assert.Error(t, err)
}

// TestFilterCmd_Execute_MissingConfig tests execution when config file doesn't exist
func TestFilterCmd_Execute_MissingConfig(t *testing.T) {
	origCfgFile := cfgFile
	defer func() {
		cfgFile = origCfgFile
		rootCmd.SetArgs(nil)
	}()

	rootCmd.SetArgs([]string{"filter", "@name == 'x'", "--config", "/tmp/nonexistent_ontocat_config.yaml"})
	err := rootCmd.Execute()
	assert.Error(t, err)
}
