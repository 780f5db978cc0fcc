package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ThomasPluck/Hdl21/pkg/installsys"
	"github.com/ThomasPluck/Hdl21/pkg/plans"
)

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Install the Hdl21 development environment",
	Long: `Clones Vlsir next to this checkout, installs the Python packages in editable mode
(the VLSIR bindings, VlsirTools, Hdl21 itself and the Ihp130 PDK package) and finishes by
installing the pre-commit hooks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}

		dryRun, err := cmd.Flags().GetBool("dry")
		if err != nil {
			return err
		}

		root, err := findRepoRoot()
		if err != nil {
			return err
		}

		plan := plans.Dev(cfg)
		runner := &installsys.Runner{Start: root, DryRun: dryRun}
		err = runner.Run(ctx, plan)
		if err != nil {
			logger.Error().Err(err).Msgf("Failed plan %s", plan.Name)
			os.Exit(installsys.ExitCode(err))
		}

		logger.Info().Msgf("Plan %s finished", plan.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devCmd)
	devCmd.Flags().BoolP("dry", "n", false, "dry run; only print the commands, don't execute anything")
}
