package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := replOptions{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the garden designer from the terminal",
		Long: `Run a garden design conversation in the terminal with the same engine the API serves.

Commands inside the chat:
  /image <path> [text]  upload a garden photo, optionally with a message
  /reset                start a new project
  /quit                 leave

Examples:
  chat
  chat --out ./renders --log-level debug`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.OutDir, "out", ".", "Directory where renders are saved")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newHashPasswordCmd())
	return cmd
}
