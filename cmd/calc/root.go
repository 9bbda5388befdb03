package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pocket-calculator/internal/observability"
)

var rootCmd = &cobra.Command{
	Use:   "calc",
	Short: "Pocket calculator on the command line",
	Long: `calc evaluates keypad input strictly left to right, like a pocket calculator.
Numbers are operands, $name is a variable and every other token is a key such as + × √ π = c.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		level := zapcore.WarnLevel
		if verbose {
			level = zapcore.DebugLevel
		}
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		cfg.OutputPaths = []string{"stderr"}
		l, err := cfg.Build()
		if err != nil {
			return err
		}
		observability.Logger = l
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log rejected inputs to stderr")
	rootCmd.PersistentFlags().StringArray("var", nil, "Bind a variable, as name=value (repeatable)")
}
