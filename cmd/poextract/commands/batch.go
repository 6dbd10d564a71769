package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/po-extract/internal/async"
	"github.com/joseph-ayodele/po-extract/internal/export"
	"github.com/joseph-ayodele/po-extract/internal/ingest"
	"github.com/joseph-ayodele/po-extract/internal/services/batch"
)

var (
	batchOutput     string
	batchWorkers    int
	batchForce      bool
	batchSkipHidden bool
	batchExts       []string
	batchWatch      bool
	batchFlags      pipelineFlags
)

var batchCmd = &cobra.Command{
	Use:   "batch DIR",
	Short: "Extract every document under a directory into a spreadsheet",
	Long: `Batch walks DIR, extracts each supported document on a worker pool and
writes one workbook with a row per document and a sheet of line items.
Files whose bytes repeat an earlier file are skipped unless --force is set.
With --watch it keeps running and prints a JSON line per new document.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "XLSX path (default <DIR>/../purchase-orders.xlsx)")
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 4, "documents processed concurrently")
	batchCmd.Flags().BoolVar(&batchForce, "force", false, "process duplicate files too")
	batchCmd.Flags().BoolVar(&batchSkipHidden, "skip-hidden", true, "skip dot files and directories")
	batchCmd.Flags().StringSliceVar(&batchExts, "ext", nil, "only these extensions (default all supported)")
	batchCmd.Flags().BoolVar(&batchWatch, "watch", false, "keep watching DIR for new documents")
	batchFlags.register(batchCmd)
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dir := args[0]

	proc, _, closeDB, err := newProcessor(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	svc := batch.NewService(proc, logger,
		async.WithWorkers(batchWorkers),
		async.WithProcessTimeout(cfg.Server.RequestTimeout),
	)
	opts := ingest.Options{Exts: batchExts, SkipHidden: batchSkipHidden, MaxBytes: int64(cfg.Server.MaxUploadBytes)}

	if batchWatch {
		out := cmd.OutOrStdout()
		return svc.Watch(ctx, ingest.WatchConfig{
			Roots:       []string{dir},
			Options:     opts,
			InitialScan: true,
			Debounce:    500 * time.Millisecond,
		}, batchFlags.options(), func(o batch.Outcome) {
			if err := writeJSON(out, "", batch.RowFor(o)); err != nil {
				logger.Warn("write outcome failed", "path", o.Source.Path, "err", err)
			}
		})
	}

	report, err := svc.Run(ctx, batch.Request{
		Root:    dir,
		Ingest:  opts,
		Extract: batchFlags.options(),
		Force:   batchForce,
	})
	if err != nil {
		return err
	}

	b, err := export.NewService(nil, logger).DraftsXLSX(report.Rows())
	if err != nil {
		return err
	}
	path := batchOutput
	if path == "" {
		path = filepath.Join(filepath.Dir(filepath.Clean(dir)), "purchase-orders.xlsx")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d matched, %d extracted, %d duplicates, %d unreadable -> %s\n",
		report.Stats.Matched, report.Succeeded(), report.Stats.Deduplicated, report.Stats.Failed, path)
	return err
}
