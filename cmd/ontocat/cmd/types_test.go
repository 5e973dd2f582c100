package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypesCommandStructure(t *testing.T) {
	assert.NotNil(t, typesCmd)
	assert.Equal(t, "types", typesCmd.Use)
	assert.NotEmpty(t, typesCmd.Short)
	assert.NotEmpty(t, typesCmd.Long)
	assert.NotNil(t, typesCmd.RunE)
}

func TestTypesCommandFlags(t *testing.T) {
	flags := typesCmd.Flags()

	byDepthFlag := flags.Lookup("by-depth")
	assert.NotNil(t, byDepthFlag)
	assert.Equal(t, "false", byDepthFlag.DefValue)

	fromManifestFlag := flags.Lookup("from-manifest")
	assert.NotNil(t, fromManifestFlag)
	assert.Equal(t, "false", fromManifestFlag.DefValue)

	manifestFlag := flags.Lookup("manifest")
	assert.NotNil(t, manifestFlag)
	assert.Equal(t, "m", manifestFlag.Shorthand)
}

func TestTypesIsAddedToRoot(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "types" {
			found = true
			break
		}
	}
	assert.True(t, found, "types command should be added to root command")
}

func TestTypesCommandExample(t *testing.T) {
	assert.Contains(t, typesCmd.Long, "Example:")
	assert.Contains(t, typesCmd.Long, "ontocat types")
}

func TestRunTypes_FromManifest(t *testing.T) {
	origCfgFile := cfgFile
	origFromManifest := typesFromManifest
	origTypesManifest := typesManifest
	defer func() {
		cfgFile = origCfgFile
		typesFromManifest = origFromManifest
		typesManifest = origTypesManifest
	}()

	tmpDir := t.TempDir()
	cfgFile = createTempTestConfig(t, tmpDir, map[string]interface{}{
		"catalog": map[string]interface{}{
			"driver": "sqlite",
			"path":   filepath.Join(tmpDir, "catalog.db"),
		},
	})
	typesManifest = writeTestManifest(t, tmpDir)
	typesFromManifest = true

	var buf bytes.Buffer
	setOutputWriter(&buf)
	defer resetOutputWriter()

	err := runTypes(typesCmd, []string{})
	assert.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Informant")
	assert.Contains(t, output, "Directory")
	assert.Contains(t, output, "Dataset")
	assert.Contains(t, output, "SOURCE DEPTH")
	assert.Contains(t, output, "Total: 3 type(s), 1 sink(s)")
}

func TestRunTypes_FromManifest_ByDepth(t *testing.T) {
	origCfgFile := cfgFile
	origFromManifest := typesFromManifest
	origTypesManifest := typesManifest
	origByDepth := typesByDepth
	defer func() {
		cfgFile = origCfgFile
		typesFromManifest = origFromManifest
		typesManifest = origTypesManifest
		typesByDepth = origByDepth
	}()

	tmpDir := t.TempDir()
	cfgFile = createTempTestConfig(t, tmpDir, map[string]interface{}{
		"catalog": map[string]interface{}{
			"driver": "sqlite",
			"path":   filepath.Join(tmpDir, "catalog.db"),
		},
	})
	typesManifest = writeTestManifest(t, tmpDir)
	typesFromManifest = true
	typesByDepth = true

	var buf bytes.Buffer
	setOutputWriter(&buf)
	defer resetOutputWriter()

	err := runTypes(typesCmd, []string{})
	assert.NoError(t, err)

	output := buf.String()
	// Depth order: the root (depth 0) must appear before the deepest type
	rootIdx := bytes.Index(buf.Bytes(), []byte("Informant"))
	deepIdx := bytes.Index(buf.Bytes(), []byte("Dataset"))
	assert.Greater(t, deepIdx, rootIdx, "root should be listed before deeper types: %s", output)
}

// TestTypesCmd_Execute_MissingConfig tests execution when config file doesn't exist
func TestTypesCmd_Execute_MissingConfig(t *testing.T) {
	origCfgFile := cfgFile
	defer func() {
		cfgFile = origCfgFile
		rootCmd.SetArgs(nil)
	}()

	rootCmd.SetArgs([]string{"types", "--config", "/tmp/nonexistent_ontocat_config.yaml"})
	err := rootCmd.Execute()
	assert.Error(t, err)
}

// TestTypesCmd_Execute_MissingManifest tests --from-manifest without a manifest anywhere
func TestTypesCmd_Execute_MissingManifest(t *testing.T) {
	origCfgFile := cfgFile
	origFromManifest := typesFromManifest
	origTypesManifest := typesManifest
	defer func() {
		cfgFile = origCfgFile
		typesFromManifest = origFromManifest
		typesManifest = origTypesManifest
		rootCmd.SetArgs(nil)
	}()

	tmpDir := t.TempDir()
	configFile := createTempTestConfig(t, tmpDir, map[string]interface{}{
		"catalog": map[string]interface{}{
			"driver": "sqlite",
			"path":   filepath.Join(tmpDir, "catalog.db"),
		},
	})

	rootCmd.SetArgs([]string{"types", "--from-manifest", "--config", configFile})
	err := rootCmd.Execute()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "manifest")
}
