package main

import (
	"github.com/spf13/cobra"
)

// NewCheck builds the check command.
func NewCheck(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check [DIR]",
		Short: "Type-check generated interfaces with tsc",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := app.cfg.OutputDir
			if len(args) == 1 {
				dir = args[0]
			}
			return runCheck(cmd, dir)
		},
	}
}
