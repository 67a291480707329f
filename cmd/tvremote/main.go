// Tvremote discovers and controls JointSpace televisions on the local network.
//
// It scans the local /24 subnet for devices answering the JointSpace control
// API on port 1925, remembers custom names for them, and sends remote-control
// key presses and text.
//
// Usage:
//
//	tvremote [command] [flags]
//
// Running without arguments launches the interactive remote.
// See 'tvremote --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/tvremote/internal/logging"
	"github.com/muurk/tvremote/internal/version"
)

func main() {
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tvremote",
	Short: "Discover and control JointSpace televisions",
	Long: `A terminal remote control for JointSpace televisions.

Finds televisions on the local network by probing every address of the
local /24 subnet, remembers custom names for them, and sends remote-control
key presses and text.

If no command is specified, the interactive remote will launch automatically.`,
	Version:           version.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runTUI,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tvremote %s\n", version.Full())
	},
}
