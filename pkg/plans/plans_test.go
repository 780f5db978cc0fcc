package plans

import (
	"testing"

	"github.com/ThomasPluck/Hdl21/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := new(config.Config)
	cfg.Log.Level = "info"
	cfg.Vlsir.URL = "https://github.com/Vlsir/Vlsir.git"
	cfg.Vlsir.Branch = "main"
	cfg.Pip.Executable = "pip"
	cfg.PDK.URL = "https://github.com/RTimothyEdwards/open_pdks.git"
	cfg.PDK.Branch = "master"
	cfg.PDK.Family = "sky130"
	return cfg
}

func TestDevPlan(t *testing.T) {
	plan := Dev(testConfig())

	assert.Equal(t, "dev", plan.Name)
	require.Len(t, plan.Steps, 6)

	names := make([]string, len(plan.Steps))
	dirs := make([]string, len(plan.Steps))
	for idx, step := range plan.Steps {
		names[idx] = step.Name
		dirs[idx] = step.Dir
	}

	assert.Equal(t, []string{
		"clone Vlsir",
		"install bindings/python",
		"install VlsirTools",
		"install Hdl21",
		"install Ihp130 PDK",
		"install commit hooks",
	}, names)

	assert.Equal(t, []string{
		"..",
		"Vlsir/bindings/python",
		"../../VlsirTools",
		"../../Hdl21",
		"pdks/Ihp130",
		"../..",
	}, dirs)

	assert.Equal(t, []string{"git", "clone", "--branch", "main", "https://github.com/Vlsir/Vlsir.git"}, plan.Steps[0].Cmd)
	assert.Equal(t, []string{"pip", "install", "-e", "."}, plan.Steps[1].Cmd)
	assert.Equal(t, []string{"pip", "install", "-e", "."}, plan.Steps[2].Cmd)
	assert.Equal(t, []string{"pip", "install", "-e", ".[dev]"}, plan.Steps[3].Cmd)
	assert.Equal(t, []string{"pip", "install", "-e", "."}, plan.Steps[4].Cmd)
	assert.Equal(t, []string{"pre-commit", "install"}, plan.Steps[5].Cmd)
}

func TestDevPlanOverrides(t *testing.T) {
	cfg := testConfig()
	cfg.Pip.Executable = "pip3"
	cfg.Vlsir.URL = "https://example.org/Vlsir.git"
	cfg.Vlsir.Branch = "next"

	plan := Dev(cfg)

	assert.Equal(t, []string{"git", "clone", "--branch", "next", "https://example.org/Vlsir.git"}, plan.Steps[0].Cmd)
	for _, step := range plan.Steps[1:5] {
		assert.Equal(t, "pip3", step.Cmd[0], "step %s should use the configured pip", step.Name)
	}
}

func TestPDKPlan(t *testing.T) {
	plan := PDK(testConfig())

	assert.Equal(t, "pdk", plan.Name)
	require.Len(t, plan.Steps, 4)

	assert.Equal(t, "clone open_pdks", plan.Steps[0].Name)
	assert.Equal(t, ".", plan.Steps[0].Dir)
	assert.Equal(t, []string{"git", "clone", "--branch", "master", "https://github.com/RTimothyEdwards/open_pdks.git"}, plan.Steps[0].Cmd)

	assert.Equal(t, "configure", plan.Steps[1].Name)
	assert.Equal(t, "open_pdks", plan.Steps[1].Dir)
	assert.Equal(t, []string{"./configure", "--enable-sky130-pdk"}, plan.Steps[1].Cmd)

	assert.Equal(t, "build", plan.Steps[2].Name)
	assert.Equal(t, ".", plan.Steps[2].Dir)
	assert.Equal(t, []string{"make"}, plan.Steps[2].Cmd)

	assert.Equal(t, "install", plan.Steps[3].Name)
	assert.Equal(t, ".", plan.Steps[3].Dir)
	assert.Equal(t, []string{"make", "install"}, plan.Steps[3].Cmd)
}

func TestPDKPlanOverrides(t *testing.T) {
	cfg := testConfig()
	cfg.PDK.Family = "gf180mcu"
	cfg.PDK.Prefix = "/opt/pdk"

	plan := PDK(cfg)

	assert.Equal(t, []string{"./configure", "--enable-gf180mcu-pdk", "--prefix=/opt/pdk"}, plan.Steps[1].Cmd)
	assert.Contains(t, plan.Desc, "gf180mcu")
}

func TestBuiltin(t *testing.T) {
	plans := Builtin(testConfig())

	require.Len(t, plans, 2)
	require.Contains(t, plans, "dev")
	require.Contains(t, plans, "pdk")
	assert.Equal(t, "dev", plans["dev"].Name)
	assert.Equal(t, "pdk", plans["pdk"].Name)
}
