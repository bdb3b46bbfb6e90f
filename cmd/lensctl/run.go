package main

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run FILE:LINE",
	Short: "Run the code lens on LINE of FILE",
	Long: `run collects FILE's code lenses and executes the one on LINE (one-based).
When several servers put a lens on the line you are asked to pick one.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, line, err := parseTarget(args[0])
		if err != nil {
			return err
		}
		file, err := absFile(target)
		if err != nil {
			return err
		}
		ws, cleanup, err := openFor(cmd, file)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()
		doc, err := ws.open(ctx, file)
		if err != nil {
			return err
		}
		if err := ws.refresh(ctx, doc); err != nil {
			return err
		}
		return ws.execute(ctx, doc, line)
	},
}
