package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"genshell/internal/repository"
)

func bashrcPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bashrc"
	}
	return filepath.Join(home, ".bashrc")
}

func newAutostartCmd() *cobra.Command {
	var (
		rcPath  string
		command string
	)

	cmd := &cobra.Command{
		Use:   "autostart",
		Short: "Manage starting genshell from ~/.bashrc",
	}
	cmd.PersistentFlags().StringVar(&rcPath, "rc", bashrcPath(), "shell startup file")

	install := &cobra.Command{
		Use:   "install",
		Short: "Start genshell automatically in new interactive shells",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := repository.NewAutostart(rcPath, command)
			changed, err := a.Install()
			if err != nil {
				return err
			}
			if changed {
				fmt.Fprintf(cmd.OutOrStdout(), "Autorun added to %s\n", a.Path())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Autorun already present in %s\n", a.Path())
			}
			return nil
		},
	}
	install.Flags().StringVar(&command, "command", "genshell", "command line the block runs")

	remove := &cobra.Command{
		Use:   "remove",
		Short: "Remove the autostart block",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := repository.NewAutostart(rcPath, "")
			changed, err := a.Remove()
			if err != nil {
				return err
			}
			if changed {
				fmt.Fprintln(cmd.OutOrStdout(), "Autostart removed.")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Autostart was not found.")
			}
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Report whether the autostart block is installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := repository.NewAutostart(rcPath, "")
			installed, err := a.Installed()
			if err != nil {
				return err
			}
			if installed {
				fmt.Fprintf(cmd.OutOrStdout(), "installed in %s\n", a.Path())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "not installed in %s\n", a.Path())
			}
			return nil
		},
	}

	cmd.AddCommand(install, remove, status)
	return cmd
}
