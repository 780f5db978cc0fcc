package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ThomasPluck/Hdl21/pkg/installsys"
)

var runCmd = &cobra.Command{
	Use:   "run [plans...]",
	Short: "Run plans from a Starlark plan file",
	Long: `This command parses the first install.star file it finds and executes the given plans.
Relative step directories start at the plan file's directory. Without arguments, the
declared plans are listed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, _, logger, err := setup(cmd)
		if err != nil {
			return err
		}

		dryRun, err := cmd.Flags().GetBool("dry")
		if err != nil {
			return err
		}

		planFile, err := cmd.Flags().GetString("file")
		if err != nil {
			return err
		}

		if planFile == "" {
			// search the next install.star file
			wd, err := os.Getwd()
			if err != nil {
				logger.Fatal().Err(err).Msg("Failed to retrieve the current working directory")
			}

			path := wd
			for {
				planFile = filepath.Join(path, "install.star")
				_, err := os.Stat(planFile)
				if err == nil {
					break
				}
				if !eris.Is(err, os.ErrNotExist) {
					logger.Fatal().Err(err).Msgf("Failed to check %s", planFile)
				}

				parent := filepath.Dir(path)
				if parent == path {
					logger.Fatal().Msg("No install.star file found")
				}

				path = parent
			}

			relPath, err := filepath.Rel(wd, planFile)
			if err == nil {
				planFile = relPath
			}
		}

		planList, err := installsys.ParsePlanFile(ctx, planFile)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to parse plans")
		}

		for _, name := range args {
			plan, ok := planList[name]
			if !ok {
				logger.Fatal().Msgf("Plan %s not found", name)
			}

			runner := &installsys.Runner{Start: filepath.Dir(planFile), DryRun: dryRun}
			err = runner.Run(ctx, plan)
			if err != nil {
				logger.Error().Err(err).Msgf("Failed plan %s", name)
				os.Exit(installsys.ExitCode(err))
			}
		}

		if len(args) == 0 {
			fmt.Println("Available plans:")
			maxNameLen := 0
			sortedNames := make([]string, 0)
			for _, plan := range planList {
				nameLen := len(plan.Name)
				if nameLen > maxNameLen {
					maxNameLen = nameLen
				}

				sortedNames = append(sortedNames, plan.Name)
			}

			sort.Strings(sortedNames)

			lineFmt := fmt.Sprintf(" * %%-%ds %%s\n", maxNameLen+3)
			for _, name := range sortedNames {
				fmt.Printf(lineFmt, name+":", planList[name].Desc)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("file", "f", "", "plan file to execute (defaults to the first install.star found here or above)")
	runCmd.Flags().BoolP("dry", "n", false, "dry run; only print the commands, don't execute anything")
}
