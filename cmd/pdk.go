package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ThomasPluck/Hdl21/pkg/installsys"
	"github.com/ThomasPluck/Hdl21/pkg/plans"
)

var pdkCmd = &cobra.Command{
	Use:   "pdk",
	Short: "Build and install a PDK from open_pdks",
	Long: `Clones open_pdks into the current directory and runs the configure, make,
make install sequence for the configured PDK family. Expect the build to take a while.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}

		dryRun, err := cmd.Flags().GetBool("dry")
		if err != nil {
			return err
		}

		plan := plans.PDK(cfg)
		runner := &installsys.Runner{DryRun: dryRun}
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
	rootCmd.AddCommand(pdkCmd)
	pdkCmd.Flags().BoolP("dry", "n", false, "dry run; only print the commands, don't execute anything")
}
