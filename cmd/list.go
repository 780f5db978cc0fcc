package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ThomasPluck/Hdl21/pkg/installsys"
	"github.com/ThomasPluck/Hdl21/pkg/plans"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in plans and their steps",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cfg, _, err := setup(cmd)
		if err != nil {
			return err
		}

		for _, plan := range []*installsys.Plan{plans.Dev(cfg), plans.PDK(cfg)} {
			fmt.Printf("%s: %s\n", plan.Name, plan.Desc)

			maxNameLen := 0
			for _, step := range plan.Steps {
				if len(step.Name) > maxNameLen {
					maxNameLen = len(step.Name)
				}
			}

			lineFmt := fmt.Sprintf(" %%2d. %%-%ds  [%%s] %%s\n", maxNameLen)
			for idx, step := range plan.Steps {
				fmt.Printf(lineFmt, idx+1, step.Name, step.Dir, step.Summary())
			}
			fmt.Println()
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
