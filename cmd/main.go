// Package cmd implements the hdlsetup CLI
package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ThomasPluck/Hdl21/pkg/config"
	"github.com/ThomasPluck/Hdl21/pkg/installsys"
)

var rootCmd = &cobra.Command{
	Use:   "hdlsetup",
	Short: "Setup tool for Hdl21 development environments",
	Long: `This command bundles the setup steps for Hdl21 development environments.
This includes cloning and installing Vlsir next to this checkout, building open_pdks and
fetching prebuilt PDK archives.`,
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

// setup loads the configuration, applies the log settings and returns a context carrying
// the configured logger.
func setup(cmd *cobra.Command) (context.Context, *config.Config, zerolog.Logger, error) {
	cfg, loader := config.Loader()
	if err := loader.Load(); err != nil {
		return nil, nil, zerolog.Logger{}, eris.Wrap(err, "failed to load the configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, zerolog.Logger{}, err
	}

	zerolog.SetGlobalLevel(cfg.LogLevel())

	var logger zerolog.Logger
	if cfg.Log.JSON {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(NewConsoleWriter())
	}

	ctx := installsys.WithLogger(cmd.Context(), &logger)
	return ctx, cfg, logger, nil
}

// findRepoRoot walks up from the current directory until it finds a .git entry and returns
// that directory. The dev plan resolves its first step against the checkout root, not
// against wherever hdlsetup happens to be invoked.
func findRepoRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", eris.Wrap(err, "failed to retrieve the current working directory")
	}

	path := wd
	for {
		_, err := os.Stat(filepath.Join(path, ".git"))
		if err == nil {
			return path, nil
		}
		if !eris.Is(err, os.ErrNotExist) {
			return "", eris.Wrapf(err, "failed to check %s", path)
		}

		parent := filepath.Dir(path)
		if parent == path {
			return "", eris.New("no .git entry found; run this inside the Hdl21 checkout")
		}
		path = parent
	}
}
