// Package cmd parses the command line into run options.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Command names selected by the CLI
const (
	CommandRun         = "run"
	CommandServeTokens = "serve-tokens"
	CommandDevices     = "devices"
)

// Options is the parsed command line
type Options struct {
	Command string
	Room    string // optional room-name hint passed to the token service
	Monitor bool   // force-enable the monitor feed
	EnvFile string // extra .env file to load
}

// ParseArgs runs the cobra command tree and returns the selected options
func ParseArgs() (*Options, error) {
	options := &Options{Command: CommandRun}

	rootCmd := &cobra.Command{
		Use:           "avatarcast",
		Short:         "Animated avatar publisher for AI voice agents",
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = CommandRun
			return nil
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve-tokens",
		Short: "Run the room token service",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandServeTokens
		},
	}
	rootCmd.AddCommand(serveCmd)

	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "List available audio input devices",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandDevices
		},
	}
	rootCmd.AddCommand(devicesCmd)

	rootCmd.PersistentFlags().StringVarP(&options.Room, "room", "r", "",
		"Room name hint; empty lets the token service pick one")
	rootCmd.PersistentFlags().BoolVarP(&options.Monitor, "monitor", "m", false,
		"Enable the local monitor feed regardless of config")
	rootCmd.PersistentFlags().StringVarP(&options.EnvFile, "env", "e", "",
		"Extra .env file to load before the default lookup")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return options, nil
}
