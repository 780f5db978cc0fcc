package cmd

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ThomasPluck/Hdl21/pkg/console"
	"github.com/ThomasPluck/Hdl21/pkg/preflight"
)

var preflightCmd = &cobra.Command{
	Use:   "preflight",
	Short: "Check that the external tools the install plans need are available",
	Long: `Probes the tools the dev and pdk plans shell out to (git, python3, pip, pre-commit,
make, magic) and reports anything that's missing or too old before a plan touches the
filesystem.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cfg, _, err := setup(cmd)
		if err != nil {
			return err
		}

		failed := false
		sets := []struct {
			label string
			tools []preflight.Tool
		}{
			{"Development environment tools", preflight.DevTools(cfg.Pip.Executable)},
			{"PDK build tools", preflight.PDKTools()},
		}

		for _, set := range sets {
			console.PrintTask(set.label)

			results := preflight.CheckAll(ctx, set.tools)
			for _, result := range results {
				printResult(result)
			}

			if preflight.Failed(results) {
				failed = true
			}
		}

		if failed {
			return eris.New("some required tools are missing or outdated")
		}

		return nil
	},
}

func printResult(result preflight.Result) {
	switch result.Status {
	case preflight.StatusOK:
		console.PrintSubtask(fmt.Sprintf("%s %s", result.Tool.Name, result.Version))
		return
	case preflight.StatusMissing:
		appendHint(result.Tool, fmt.Sprintf("%s: not found", result.Tool.Name))
	case preflight.StatusOutdated:
		appendHint(result.Tool, fmt.Sprintf("%s: version %s doesn't satisfy %s",
			result.Tool.Name, result.Version, result.Tool.Constraint))
	default:
		console.PrintError(fmt.Sprintf("%s: %v", result.Tool.Name, result.Err))
	}
}

func appendHint(tool preflight.Tool, msg string) {
	if tool.Hint != "" {
		msg += "; " + tool.Hint
	}

	if tool.Optional {
		console.PrintWarning(msg + " (optional)")
	} else {
		console.PrintError(msg)
	}
}

func init() {
	rootCmd.AddCommand(preflightCmd)
}
