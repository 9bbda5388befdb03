package main

import (
	"github.com/spf13/cobra"

	"pocket-calculator/internal/cli"
	"pocket-calculator/internal/engine"
	"pocket-calculator/internal/observability"
)

// replCmd represents the repl command
var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Read keypad tokens from stdin, one line at a time",
	Long: `Starts an interactive session. Each line is pushed onto the session's input log
and the history and display are printed. "reset" clears the log; "quit" exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pairs, _ := cmd.Flags().GetStringArray("var")
		vars, err := cli.ParseBindings(pairs)
		if err != nil {
			return err
		}

		r := &cli.REPL{
			Engine: engine.New(engine.WithVariables(vars)),
			Logger: observability.Logger,
			Prompt: "> ",
		}
		return r.Run(cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}
