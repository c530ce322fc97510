package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// exitCodeError carries a process exit status through cobra so deferred
// cleanup (terminal restore, shell shutdown) runs before os.Exit.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	var exitErr *exitCodeError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		os.Exit(exitErr.code)
	default:
		fmt.Fprintf(os.Stderr, "genshell: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &sessionOptions{}

	root := &cobra.Command{
		Use:   "genshell",
		Short: "Interactive shell with AI command synthesis, explanation, and chat",
		Long: `genshell runs your shell behind a pseudo-terminal and intercepts a few
line forms before they reach it:

  !<instruction>   turn an instruction into a command, then confirm it
  <command>?       explain a command and show typical uses
  ?                enter chat mode ("exit" leaves it)
  lang?            choose the response language
  model?           choose the AI model
  autostart-remove remove the ~/.bashrc autostart block

Everything else goes to the shell unchanged. Ctrl+C quits.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context(), opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/genshell/config.toml)")
	root.Flags().StringVar(&opts.shellPath, "shell", "", "shell executable (default bash)")
	root.Flags().StringVar(&opts.language, "lang", "", "response language code, e.g. EN or RU")
	root.Flags().StringVar(&opts.model, "model", "", "model name or 1-based index into the model list")
	root.Flags().BoolVar(&opts.offline, "offline", false, "use local offline models instead of Google AI")
	root.Flags().BoolVar(&opts.markdown, "markdown", false, "render AI answers as markdown")
	root.Flags().BoolVar(&opts.debug, "debug", false, "log at debug level")

	root.AddCommand(newAutostartCmd(), newAuthCmd())
	return root
}
