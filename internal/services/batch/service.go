package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/po-extract/internal/async"
	"github.com/joseph-ayodele/po-extract/internal/entity"
	"github.com/joseph-ayodele/po-extract/internal/export"
	"github.com/joseph-ayodele/po-extract/internal/ingest"
	processor "github.com/joseph-ayodele/po-extract/internal/pipeline"
)

// Extractor runs one document through the pipeline.
type Extractor interface {
	Extract(ctx context.Context, doc entity.RawDocument, opts processor.Options) (*processor.Result, error)
}

// Request describes one directory run.
type Request struct {
	Root    string
	Ingest  ingest.Options
	Extract processor.Options
	// Force processes files whose bytes repeat an earlier file in the scan.
	Force bool
}

// Outcome is what happened to one discovered file.
type Outcome struct {
	Source  ingest.Source
	Result  *processor.Result
	Err     error
	Skipped bool // duplicate, not processed
}

// Report summarizes a directory run. Outcomes follow discovery order.
type Report struct {
	Stats    ingest.DirStats
	Outcomes []Outcome
	Unread   []ingest.FileError
}

// Succeeded counts outcomes with a draft.
func (r *Report) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil && o.Result != nil {
			n++
		}
	}
	return n
}

// Rows converts the processed outcomes for export. Skipped duplicates are
// left out.
func (r *Report) Rows() []export.Row {
	rows := make([]export.Row, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Skipped {
			continue
		}
		rows = append(rows, RowFor(o))
	}
	return rows
}

// RowFor converts one outcome for export.
func RowFor(o Outcome) export.Row {
	row := export.Row{Source: o.Source.Path}
	if o.Err != nil {
		row.Error = o.Err.Error()
	}
	if o.Result != nil {
		if o.Result.JobID != uuid.Nil {
			row.JobID = o.Result.JobID.String()
		}
		row.Method = o.Result.Text.Method
		row.Pages = o.Result.Text.Pages
		row.Draft = o.Result.Draft
	}
	return row
}

// Service extracts every document under a directory through a worker queue.
type Service struct {
	extractor Extractor
	logger    *slog.Logger
	queueOpts []async.Option
}

// NewService returns a Service. queueOpts tune the worker pool used per run.
func NewService(ex Extractor, logger *slog.Logger, queueOpts ...async.Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{extractor: ex, logger: logger, queueOpts: queueOpts}
}

// Run discovers documents under req.Root and extracts each one. Per-file
// failures are reported in the Report, not returned.
func (s *Service) Run(ctx context.Context, req Request) (*Report, error) {
	root := strings.TrimSpace(req.Root)
	if root == "" {
		return nil, errors.New("root path is required")
	}

	start := time.Now()
	s.logger.Info("batch.start", "root", root, "force", req.Force)
	srcs, unread, stats, err := ingest.Discover(ctx, root, req.Ingest)
	if err != nil {
		s.logger.Error("batch.discover.failed", "root", root, "err", err)
		return nil, err
	}

	report := &Report{Stats: stats, Outcomes: make([]Outcome, len(srcs)), Unread: unread}
	index := make(map[string]int, len(srcs))
	for i, src := range srcs {
		report.Outcomes[i] = Outcome{Source: src}
		index[src.Path] = i
	}

	var mu sync.Mutex
	q := async.NewProcessorQueue(async.ProcessorFunc(func(ctx context.Context, job async.Job) error {
		res, err := s.extractFile(ctx, job.Path, req)
		mu.Lock()
		o := &report.Outcomes[index[job.Path]]
		o.Result, o.Err = res, err
		mu.Unlock()
		return err
	}), s.logger, append([]async.Option{async.WithBaseContext(ctx)}, s.queueOpts...)...)

	for i, src := range srcs {
		if src.Deduplicated && !req.Force {
			s.logger.Info("skipping processing (duplicate)", "path", src.Path, "hash", src.HashHex)
			report.Outcomes[i].Skipped = true
			continue
		}
		job := async.Job{Path: src.Path, Force: src.Deduplicated, TraceID: traceID(src)}
		if err := q.Enqueue(ctx, job); err != nil {
			s.logger.Error("enqueue failed for file", "path", src.Path, "err", err)
			mu.Lock()
			report.Outcomes[i].Err = fmt.Errorf("enqueue: %w", err)
			mu.Unlock()
		}
	}
	q.Shutdown(context.WithoutCancel(ctx))

	s.logger.Info("batch.done",
		"root", root,
		"matched", stats.Matched,
		"succeeded", report.Succeeded(),
		"deduplicated", stats.Deduplicated,
		"unreadable", stats.Failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

// Watch extracts each document that appears under cfg.Roots until ctx is
// done, calling onOutcome from the worker goroutines.
func (s *Service) Watch(ctx context.Context, cfg ingest.WatchConfig, opts processor.Options, onOutcome func(Outcome)) error {
	if cfg.Logger == nil {
		cfg.Logger = s.logger
	}
	events, errs, err := ingest.Watch(ctx, cfg)
	if err != nil {
		return err
	}

	req := Request{Extract: opts}
	q := async.NewProcessorQueue(async.ProcessorFunc(func(ctx context.Context, job async.Job) error {
		res, err := s.extractFile(ctx, job.Path, req)
		if onOutcome != nil {
			onOutcome(Outcome{Source: ingest.Source{Path: job.Path}, Result: res, Err: err})
		}
		return err
	}), s.logger, append([]async.Option{async.WithBaseContext(ctx)}, s.queueOpts...)...)
	defer q.Shutdown(context.WithoutCancel(ctx))

	for events != nil || errs != nil {
		select {
		case p, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if err := q.Enqueue(ctx, async.Job{Path: p}); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("enqueue failed for file", "path", p, "err", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.logger.Warn("watch.error", "err", err)
		}
	}
	return nil
}

func (s *Service) extractFile(ctx context.Context, path string, req Request) (*processor.Result, error) {
	doc, _, err := ingest.LoadFile(path, req.Ingest.MaxBytes)
	if err != nil {
		return nil, err
	}
	return s.extractor.Extract(ctx, doc, req.Extract)
}

func traceID(src ingest.Source) string {
	if len(src.HashHex) >= 12 {
		return src.HashHex[:12]
	}
	return src.HashHex
}
