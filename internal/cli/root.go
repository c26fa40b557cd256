// Package cli implements the aether command-line interface using Cobra.
// `serve` runs the daemon; every other command drives a running daemon
// through the local API.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aether-desk/aether/internal/api"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "addr", "", "Daemon API address (default from config)")
}

var apiAddr string

var rootCmd = &cobra.Command{
	Use:   "aether",
	Short: "Animated and scheduled desktop wallpapers",
	Long: `aether paints the desktop with static images, videos, web pages,
shaders and audio visualizers, and switches between them on a schedule.

Start the daemon with 'aether serve', then control it with the other commands.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version
	api.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
