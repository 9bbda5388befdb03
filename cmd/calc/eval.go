package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pocket-calculator/internal/cli"
	"pocket-calculator/internal/engine"
)

// evalCmd represents the eval command
var evalCmd = &cobra.Command{
	Use:   "eval <token>...",
	Short: "Evaluate a sequence of keypad tokens",
	Example: `  calc eval 6 × 5 × 4 =
  calc eval 5 × -2 =
  calc eval --var x=2 '$x' ^ 10 =`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pairs, _ := cmd.Flags().GetStringArray("var")
		vars, err := cli.ParseBindings(pairs)
		if err != nil {
			return err
		}

		ev, err := engine.Replay(cli.ParseTokens(strings.Join(args, " ")), engine.WithVariables(vars))
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), cli.Render(ev))
		return nil
	},
}

func init() {
	// Flags stop at the first token so negative operands are not parsed as flags.
	evalCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(evalCmd)
}
