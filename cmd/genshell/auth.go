package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"genshell/internal/llm"
	"genshell/internal/terminal"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the Google AI API key stored in the OS keyring",
	}

	setKey := &cobra.Command{
		Use:   "set-key",
		Short: "Store the API key (read from the terminal or stdin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := readKey(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := llm.SaveAPIKey(key); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key saved to keyring.")
			return nil
		},
	}

	deleteKey := &cobra.Command{
		Use:   "delete-key",
		Short: "Remove the stored API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := llm.DeleteAPIKey(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key removed from keyring.")
			return nil
		},
	}

	cmd.AddCommand(setKey, deleteKey)
	return cmd
}

// readKey reads the key without echo when in is the terminal, otherwise
// takes the first line of in.
func readKey(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && terminal.IsTerminal(f) {
		fmt.Fprint(prompt, "Google AI API key: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read key: %w", err)
		}
		return validKey(string(b))
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read key: %w", err)
	}
	return validKey(line)
}

func validKey(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("empty API key")
	}
	return s, nil
}
