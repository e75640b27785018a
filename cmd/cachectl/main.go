// cachectl is an operator CLI for the cachesync admin API.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags
var Version = "dev"

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "cachectl",
	Short: "Inspect and control a cachesync daemon",
	Long: `cachectl talks to the admin API of a running cachesync daemon.

It can show per-table cache state, trigger manual syncs against the
remote store, and dump cached snapshots.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8000", "Base URL of the cachesync admin API")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of cachectl.",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("cachectl %s\n", Version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
