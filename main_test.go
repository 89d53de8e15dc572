package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"dialogue-tutor/utils"
	"dialogue-tutor/work-flows/models"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioOptionsFromConfig(t *testing.T) {
	opts := scenarioOptions([]utils.ScenarioConfig{
		{ID: "hospital", Description: "See a doctor"},
		{ID: "bank", Label: "Bank"},
	})

	require.Len(t, opts, 2)
	assert.Equal(t, models.Scenario("hospital"), opts[0].ID)
	assert.Equal(t, "hospital", opts[0].Label)
	assert.Equal(t, "Bank", opts[1].Label)

	assert.Len(t, scenarioOptions(nil), 4)
}

func TestConfigSetAndScenariosCommands(t *testing.T) {
	color.NoColor = true
	utils.ClearAppConfigCache()
	t.Setenv("TUTOR_API_URL", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	var sink bytes.Buffer
	utils.SetOutput(&sink)
	t.Cleanup(func() {
		utils.SetOutput(nil)
		configPath = ""
	})

	root := newRootCmd()
	root.SetArgs([]string{"--config", path, "config", "set", "default_scenario", "travel"})
	require.NoError(t, root.Execute())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "default_scenario: travel")

	var out bytes.Buffer
	root = newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"--config", path, "scenarios"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "* travel")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "tutor dev\n", out.String())
}

func TestConfigSetKeepsEnvOverridesOutOfFile(t *testing.T) {
	utils.ClearAppConfigCache()
	t.Setenv("TUTOR_API_URL", "http://temporary-override:9999/api")
	path := filepath.Join(t.TempDir(), "config.yaml")
	var sink bytes.Buffer
	utils.SetOutput(&sink)
	t.Cleanup(func() {
		utils.SetOutput(nil)
		configPath = ""
	})

	root := newRootCmd()
	root.SetArgs([]string{"--config", path, "config", "set", "show_pinyin", "true"})
	require.NoError(t, root.Execute())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "show_pinyin: true")
	assert.NotContains(t, string(raw), "temporary-override")
	assert.NotContains(t, string(raw), "log_file")
}
