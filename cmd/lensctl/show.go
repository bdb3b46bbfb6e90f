package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var showOnlyAnnotated bool

var showCmd = &cobra.Command{
	Use:   "show FILE",
	Short: "Print FILE with the code lenses of its language servers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := absFile(args[0])
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
		if ws.opts.tui && !ws.opts.quiet {
			err = runRefreshWithUI(ctx, ws, doc)
		} else {
			err = ws.refresh(ctx, doc)
		}
		if err != nil {
			return err
		}
		fmt.Fprint(ws.opts.stdout, ws.view(doc, showOnlyAnnotated))
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showOnlyAnnotated, "only-lenses", false, "print only lines that carry code lenses")
}
