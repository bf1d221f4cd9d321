package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jdefrancesco/imgDitto/internal/config"
	"github.com/jdefrancesco/imgDitto/internal/dfs"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newFsInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "fsinfo [path]",
		Short:       "List mounted file systems and detect the one holding path",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if err := dfs.ListFileSystems(out); err != nil {
				return err
			}

			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			fsType, err := dfs.DetectFilesystem(path)
			if err != nil {
				return fmt.Errorf("detect file system for %s: %w", path, err)
			}
			fmt.Fprintf(out, "\n%s is on %s\n", path, fsType)
			return nil
		},
	}
}

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:         "config",
		Short:       "Configuration utilities",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
	}
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(&cobra.Command{
		Use:   "sample",
		Short: "Print a sample configuration",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), config.Sample())
		},
	})
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the sample configuration to the default location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := targetPath
			if target == "" {
				target = config.DefaultPath()
			}
			if target == "" {
				return fmt.Errorf("cannot determine config directory, use --path")
			}

			if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				}
			}
			if err := os.WriteFile(target, []byte(config.Sample()), 0o600); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			pterm.Success.Printf("Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite an existing file")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the imgDitto version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\n", ver)
		},
	}
}
