package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderDefaults(t *testing.T) {
	cfg, loader := Loader()
	require.NoError(t, loader.Load())

	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.JSON)
	assert.Equal(t, "https://github.com/Vlsir/Vlsir.git", cfg.Vlsir.URL)
	assert.Equal(t, "main", cfg.Vlsir.Branch)
	assert.Equal(t, "pip", cfg.Pip.Executable)
	assert.Equal(t, "https://github.com/RTimothyEdwards/open_pdks.git", cfg.PDK.URL)
	assert.Equal(t, "master", cfg.PDK.Branch)
	assert.Equal(t, "sky130", cfg.PDK.Family)
	assert.Equal(t, "", cfg.PDK.Prefix)

	require.NoError(t, cfg.Validate())
}

func TestLoaderEnvOverride(t *testing.T) {
	t.Setenv("HDLSETUP_LOG_LEVEL", "debug")
	t.Setenv("HDLSETUP_PIP_EXECUTABLE", "pip3")
	t.Setenv("HDLSETUP_PDK_FAMILY", "gf180mcu")

	cfg, loader := Loader()
	require.NoError(t, loader.Load())

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "pip3", cfg.Pip.Executable)
	assert.Equal(t, "gf180mcu", cfg.PDK.Family)

	require.NoError(t, cfg.Validate())
}

func TestLoaderFile(t *testing.T) {
	tmp := t.TempDir()
	content := `[log]
level = "debug"

[vlsir]
branch = "next"

[pdk]
family = "gf180mcu"
prefix = "/opt/pdk"
`
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "hdlsetup.toml"), []byte(content), 0660))

	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = os.Chdir(wd)
	})
	require.NoError(t, os.Chdir(tmp))

	cfg, loader := Loader()
	require.NoError(t, loader.Load())

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "next", cfg.Vlsir.Branch)
	assert.Equal(t, "gf180mcu", cfg.PDK.Family)
	assert.Equal(t, "/opt/pdk", cfg.PDK.Prefix)

	// Anything the file doesn't mention keeps its default.
	assert.Equal(t, "pip", cfg.Pip.Executable)
	assert.Equal(t, "https://github.com/Vlsir/Vlsir.git", cfg.Vlsir.URL)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, loader := Loader()
		require.NoError(t, loader.Load())
		return cfg
	}

	tests := []struct {
		name   string
		modify func(cfg *Config)
		msg    string
	}{
		{"defaults", func(cfg *Config) {}, ""},
		{"warning level", func(cfg *Config) { cfg.Log.Level = "warning" }, ""},
		{"bad log level", func(cfg *Config) { cfg.Log.Level = "verbose" }, "log.level"},
		{"empty vlsir url", func(cfg *Config) { cfg.Vlsir.URL = "" }, "vlsir.url"},
		{"empty pip executable", func(cfg *Config) { cfg.Pip.Executable = "" }, "pip.executable"},
		{"empty pdk url", func(cfg *Config) { cfg.PDK.URL = "" }, "pdk.url"},
		{"bad pdk family", func(cfg *Config) { cfg.PDK.Family = "sky90" }, "pdk.family"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.modify(cfg)

			err := cfg.Validate()
			if tc.msg == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.msg)
			}
		})
	}
}

func TestLogLevel(t *testing.T) {
	cfg := Config{}
	cfg.Log.Level = "debug"
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel())

	cfg.Log.Level = "warning"
	assert.Equal(t, zerolog.WarnLevel, cfg.LogLevel())

	cfg.Log.Level = "error"
	assert.Equal(t, zerolog.ErrorLevel, cfg.LogLevel())
}
