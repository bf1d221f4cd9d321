package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jdefrancesco/imgDitto/internal/index"
	"github.com/jdefrancesco/imgDitto/internal/match"

	"github.com/spf13/cobra"
)

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var indexPath string
	var concurrency int

	cmd := &cobra.Command{
		Use:   "match <request.json>",
		Short: "Match a JSON request against an existing index and print the mapping",
		Long: `Reads {"primary": [...], "secondary": [...], "key": "contentHash"}
from the file ("-" for stdin) and prints primary -> duplicates as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("index") {
				cfg.IndexPath = indexPath
			}
			if strings.TrimSpace(cfg.IndexPath) == "" {
				return errors.New("match needs a populated index (--index or match.index in the config)")
			}
			if cmd.Flags().Changed("concurrency") {
				cfg.Concurrency = concurrency
			}

			raw, err := readRequest(args[0])
			if err != nil {
				return err
			}

			store, err := index.OpenExisting(cmd.Context(), cfg.IndexPath)
			if err != nil {
				return err
			}
			defer store.Close()

			res := match.MatchRequest(cmd.Context(), raw, store, match.WithLimit(cfg.Concurrency))
			if err := res.Err(); err != nil {
				return fmt.Errorf("%s: %w", res.Outcome, err)
			}

			out, err := json.MarshalIndent(res.Mapping.GetMap(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&indexPath, "index", "", "SQLite index to query")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Maximum concurrent index lookups (0 means unbounded)")
	return cmd
}

func readRequest(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	// #nosec G304 -- user supplied request path
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	return data, nil
}
