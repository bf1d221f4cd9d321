package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jdefrancesco/imgDitto/internal/config"
	"github.com/jdefrancesco/imgDitto/internal/dedupe"
	"github.com/jdefrancesco/imgDitto/internal/dfs"
	"github.com/jdefrancesco/imgDitto/internal/dsklog"
	"github.com/jdefrancesco/imgDitto/internal/match"
	"github.com/jdefrancesco/imgDitto/internal/remove"
	"github.com/jdefrancesco/imgDitto/internal/ui"
	"github.com/jdefrancesco/imgDitto/pkg/utils"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

type runOptions struct {
	dryRun      bool
	verbose     bool
	review      bool
	key         string
	hash        string
	index       string
	jsonOut     string
	csvOut      string
	minSize     string
	maxSize     string
	concurrency int
	skipHidden  bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <primary> <secondary>",
		Short: "Remove images under <secondary> that already exist under <primary>",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := opts.apply(cmd, &cfg); err != nil {
				return err
			}
			return runDedupe(cmd, ctx, cfg, opts, args[0], args[1])
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&opts.dryRun, "dry-run", "n", false, "Report what would be removed without deleting anything")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging")
	f.BoolVar(&opts.review, "review", false, "Review duplicates interactively before deleting")
	f.StringVar(&opts.key, "key", "", "Fingerprint to compare: contentHash or sizeBytes")
	f.StringVar(&opts.hash, "hash", "", "Content hash: sha256 or blake3")
	f.StringVar(&opts.index, "index", "", "Persistent SQLite index (default is a temporary one)")
	f.StringVar(&opts.jsonOut, "json", "", "Write the duplicate mapping as JSON to this file")
	f.StringVar(&opts.csvOut, "csv", "", "Write the duplicate mapping as CSV to this file")
	f.StringVar(&opts.minSize, "min-size", "", "Ignore images smaller than this (e.g. 10K)")
	f.StringVar(&opts.maxSize, "max-size", "", "Ignore images larger than this (e.g. 2GiB)")
	f.IntVar(&opts.concurrency, "concurrency", 0, "Maximum concurrent index lookups (0 means unbounded)")
	f.BoolVar(&opts.skipHidden, "skip-hidden", true, "Skip hidden files and directories")

	return cmd
}

// apply overrides cfg with the flags the user set explicitly.
func (o runOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed

	if changed("dry-run") {
		cfg.DryRun = o.dryRun
	}
	if changed("verbose") {
		cfg.Verbose = o.verbose
	}
	if o.review {
		cfg.ReviewOnly = true
	}
	if changed("key") {
		key, ok := match.ParseKey(o.key)
		if !ok {
			return fmt.Errorf("--key: %w: %q", match.ErrUnknownKey, o.key)
		}
		cfg.Key = key
	}
	if changed("hash") {
		algo, err := dfs.ParseHashAlgorithm(o.hash)
		if err != nil {
			return fmt.Errorf("--hash: %w", err)
		}
		cfg.HashAlgorithm = algo
	}
	if changed("index") {
		cfg.IndexPath = o.index
	}
	if changed("min-size") {
		n, err := utils.ParseSize(o.minSize)
		if err != nil {
			return fmt.Errorf("--min-size: %w", err)
		}
		cfg.MinFileSize = uint(n)
	}
	if changed("max-size") {
		n, err := utils.ParseSize(o.maxSize)
		if err != nil {
			return fmt.Errorf("--max-size: %w", err)
		}
		cfg.MaxFileSize = uint(n)
	}
	if changed("concurrency") {
		cfg.Concurrency = o.concurrency
	}
	if changed("skip-hidden") {
		cfg.SkipHidden = o.skipHidden
	}

	if cfg.Verbose && !dsklog.EnvLevelSet() {
		_ = dsklog.SetLevel("debug")
	}
	return cfg.Validate()
}

func runDedupe(cmd *cobra.Command, ctx *commandContext, cfg config.Config, opts runOptions, primary, secondary string) error {
	tty := interactive(os.Stdout)
	if !ctx.noBanner && tty {
		showHeader()
	}
	if cfg.DryRun {
		pterm.Info.Println("Dry run: nothing will be deleted.")
	}
	fmt.Println("[+] Press CTRL+C to stop imgDitto at any time.")

	var spinner *pterm.SpinnerPrinter
	if tty {
		spinner, _ = pterm.DefaultSpinner.Start("Starting...")
	}
	progress := func(stage string) {
		dsklog.Dlogger.Debugf("Stage: %s", stage)
		if spinner != nil {
			spinner.UpdateText(fmt.Sprintf("%s %s against %s...", stage, secondary, primary))
		}
	}

	rep, err := dedupe.Run(cmd.Context(), cfg, primary, secondary, progress)
	if spinner != nil {
		_ = spinner.Stop()
	}
	if err != nil {
		if rep != nil {
			fmt.Println(renderSummary("imgDitto (interrupted)", summaryRows(rep)))
		}
		return err
	}

	pterm.Success.Printf("Processed %d primary and %d secondary images in %s\n",
		rep.Primary, rep.Secondary, rep.Elapsed.Round(time.Millisecond))

	if opts.jsonOut != "" {
		if err := rep.Mapping.WriteJSON(opts.jsonOut); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
		pterm.Info.Printf("Wrote %s\n", opts.jsonOut)
	}
	if opts.csvOut != "" {
		if err := rep.Mapping.WriteCSV(opts.csvOut); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		pterm.Info.Printf("Wrote %s\n", opts.csvOut)
	}

	if cfg.ReviewOnly {
		if tty && interactive(os.Stdin) {
			return ui.LaunchTUI(cmd.Context(), rep.Mapping, remove.Remover{DryRun: cfg.DryRun})
		}
		pterm.Warning.Println("--review needs a terminal; nothing was removed.")
	}

	if tty {
		if err := rep.Mapping.ShowResults(); err != nil {
			return err
		}
	} else {
		rep.Mapping.PrintDmap()
	}
	fmt.Println(renderSummary("imgDitto "+rep.RunID, summaryRows(rep)))

	if rep.Removal != nil && len(rep.Removal.Failed) > 0 {
		return fmt.Errorf("%d duplicates could not be removed", len(rep.Removal.Failed))
	}
	return nil
}

func summaryRows(rep *dedupe.Report) [][2]string {
	rows := [][2]string{
		{"Primary", rep.PrimaryDir},
		{"Secondary", rep.SecondaryDir},
		{"Key", rep.Key.String()},
		{"Primary images", strconv.Itoa(rep.Primary)},
		{"Secondary images", strconv.Itoa(rep.Secondary)},
	}
	if rep.Mapping != nil {
		rows = append(rows,
			[2]string{"Primaries with duplicates", strconv.Itoa(rep.Mapping.MapSize())},
			[2]string{"Duplicates", strconv.Itoa(len(rep.Mapping.Secondaries()))},
		)
	}
	if s := rep.Removal; s != nil {
		label := "Removed"
		if s.DryRun {
			label = "Would remove"
		}
		rows = append(rows,
			[2]string{label, strconv.Itoa(len(s.Removed))},
			[2]string{"Already gone", strconv.Itoa(len(s.Skipped))},
			[2]string{"Failed", strconv.Itoa(len(s.Failed))},
			[2]string{"Space", utils.DisplaySize(s.Bytes)},
		)
	}
	rows = append(rows, [2]string{"Elapsed", rep.Elapsed.Round(time.Millisecond).String()})
	return rows
}
