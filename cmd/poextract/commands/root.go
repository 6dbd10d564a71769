package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/po-extract/internal/common"
	processor "github.com/joseph-ayodele/po-extract/internal/pipeline"
	"github.com/joseph-ayodele/po-extract/internal/repository"
	"github.com/joseph-ayodele/po-extract/internal/server"
)

var (
	cfgFile  string
	logLevel string
	journal  string

	// set by PersistentPreRunE
	cfg    *common.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "poextract",
	Short: "Extract purchase-order fields from scanned or digital documents",
	Long: `poextract turns a purchase-order PDF or image into a draft record.
PDFs with a text layer are read directly; everything else is rendered
with pdftoppm and recognized with tesseract before field extraction.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := common.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			c.Log.Level = logLevel
		}
		if cmd.Flags().Changed("journal") {
			c.Database.DSN = journal
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c
		logger = common.NewLogger(c.Log)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML config file overriding the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&journal, "journal", "", "record jobs in this database (sqlite path or postgres:// URL)")
}

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// newProcessor builds the local pipeline, with the journal when configured.
// The returned close func is never nil.
func newProcessor(ctx context.Context) (*processor.Processor, repository.ExtractJobRepository, func(), error) {
	proc := processor.NewFromConfig(cfg.OCR, logger)
	db, jobs, err := server.OpenJournal(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, func() {}, fmt.Errorf("open journal: %w", err)
	}
	if jobs != nil {
		proc.WithJournal(jobs)
	}
	return proc, jobs, func() { db.Close(logger) }, nil
}

// pipelineFlags are shared by commands that run the pipeline.
type pipelineFlags struct {
	language string
	scale    float64
	workers  int
	forceOCR bool
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.language, "lang", "l", "", "tesseract language (default from config)")
	cmd.Flags().Float64Var(&f.scale, "scale", 0, "render scale, 1.0 = 72 DPI (default from config)")
	cmd.Flags().IntVar(&f.workers, "page-workers", 0, "pages recognized concurrently (default from config)")
	cmd.Flags().BoolVar(&f.forceOCR, "force-ocr", false, "ignore any PDF text layer")
}

func (f *pipelineFlags) options() processor.Options {
	return processor.Options{
		Language:    f.language,
		Scale:       f.scale,
		PageWorkers: f.workers,
		ForceOCR:    f.forceOCR,
	}
}
