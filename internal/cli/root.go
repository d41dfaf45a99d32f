package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "schoolmig",
	Short: "Migrate schools, teachers, parents and students from V1 to V2",
	Long: `schoolmig copies a legacy (V1) school management database into the V2
schema. Records are validated and normalized on the way; every entity gets
an identity mapping, and a run ends with an integrity and consistency report.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/schoolmig/config.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format: table, json or yaml")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: console or json")
}
