package config

import (
	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigtoml"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Config describes all configuration options
type Config struct {
	Log struct {
		Level string `default:"info"`
		JSON  bool   `default:"false" usage:"Output JSON log lines instead of pretty console messages"`
	}
	Vlsir struct {
		URL    string `default:"https://github.com/Vlsir/Vlsir.git" usage:"Vlsir repository to clone next to this checkout"`
		Branch string `default:"main" usage:"Vlsir branch to check out"`
	}
	Pip struct {
		Executable string `default:"pip" usage:"pip executable used for the editable installs"`
	}
	PDK struct {
		URL    string `default:"https://github.com/RTimothyEdwards/open_pdks.git" usage:"open_pdks repository to clone"`
		Branch string `default:"master" usage:"open_pdks branch to check out"`
		Family string `default:"sky130" usage:"PDK family passed to configure (sky130 or gf180mcu)"`
		Prefix string `usage:"Install prefix for the built PDK files (open_pdks defaults to /usr/local/share/pdk)"`
	}
}

var logLevels = map[string]zerolog.Level{
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
	"fatal":   zerolog.FatalLevel,
}

var pdkFamilies = map[string]bool{
	"sky130":   true,
	"gf180mcu": true,
}

// Loader initializes an empty config object and returns a new Loader for this object.
// Command line flags are handled by cobra which is why the loader skips them.
func Loader() (*Config, *aconfig.Loader) {
	cfg := Config{}
	return &cfg, aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "HDLSETUP",
		SkipFlags: true,
		Files:     []string{"hdlsetup.toml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".toml": aconfigtoml.New(),
		},
	})
}

// Validate verifies that all config fields have valid values
func (cfg *Config) Validate() error {
	_, ok := logLevels[cfg.Log.Level]
	if !ok {
		return eris.Errorf(`Invalid value for log.level: %s`, cfg.Log.Level)
	}

	if cfg.Vlsir.URL == "" {
		return eris.New(`Invalid value for vlsir.url: must not be empty`)
	}

	if cfg.Pip.Executable == "" {
		return eris.New(`Invalid value for pip.executable: must not be empty`)
	}

	if cfg.PDK.URL == "" {
		return eris.New(`Invalid value for pdk.url: must not be empty`)
	}

	if !pdkFamilies[cfg.PDK.Family] {
		return eris.Errorf(`Invalid value for pdk.family: %s (must be sky130 or gf180mcu)`, cfg.PDK.Family)
	}

	return nil
}

// LogLevel converts the .Log.Level field to a zerolog.Level
func (cfg *Config) LogLevel() zerolog.Level {
	return logLevels[cfg.Log.Level]
}
