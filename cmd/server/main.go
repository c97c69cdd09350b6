// Package main is the entry point for the numenera-api server and tools
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "numenera-api",
	Short: "Numenera rules gRPC server",
	Long: `Numenera API hosts the "Roll with Effort" dialog over gRPC: Effort cost,
task difficulty, pool deduction and d20 task rolls for Numenera characters.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		v, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return setupLogging(v, cmd.ErrOrStderr())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String(keyLogLevel, "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String(keyLogFormat, "text", "log format (text, json)")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(newEffortCmd())
	rootCmd.AddCommand(newSeedCmd())
	rootCmd.AddCommand(newCheckCmd())
}
