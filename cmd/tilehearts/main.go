// cmd/tilehearts/main.go
package main

import (
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tilehearts",
		Short: "Two-player tile and heart card game server",
		Long: `tilehearts runs the realtime game server and its supporting jobs.

Configuration is read from the environment (a .env file is honored).`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newHistorianCmd())
	rootCmd.AddCommand(newMigrateCmd())

	return rootCmd
}

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
