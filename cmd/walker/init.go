package main

import (
	"fmt"
	"path/filepath"

	"github.com/gigaz-dev/walker/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init <profile>",
	Short: "Create a profile from the template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.CreateFromTemplate(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", filepath.Join(config.Root(), args[0], "config.yaml"))
		return nil
	},
}
