package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "esgrag",
	Short: "Retrieval service over sustainability disclosure corpora",
	Long: `esgrag indexes sustainability disclosure standards, industry
taxonomies and uploaded company reports, and serves hybrid
semantic plus keyword retrieval over them.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(settingDefaultConfig)
}
