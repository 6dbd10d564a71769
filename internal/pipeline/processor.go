package processor

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/po-extract/internal/common"
	"github.com/joseph-ayodele/po-extract/internal/entity"
	parse "github.com/joseph-ayodele/po-extract/internal/pipeline/parsefields"
)

// TextLayer reads machine-readable text already present in a document.
type TextLayer interface {
	ExtractEmbeddedText(ctx context.Context, doc entity.RawDocument) (string, error)
}

// PageRenderer rasterizes a document one page at a time, in page order.
type PageRenderer interface {
	EachPage(ctx context.Context, doc entity.RawDocument, scale float64, fn func(entity.PageImage) error) (int, error)
}

// PageRecognizer transcribes one page image.
type PageRecognizer interface {
	Recognize(ctx context.Context, page entity.PageImage, language string) (string, error)
}

// Options tune a single extraction. Zero values fall back to the
// Processor's defaults.
type Options struct {
	Language string
	Scale    float64
	// PageWorkers > 1 recognizes pages concurrently; output order is
	// unchanged.
	PageWorkers int
	// ForceOCR skips the PDF text layer.
	ForceOCR bool
}

// Result is one finished extraction.
type Result struct {
	JobID uuid.UUID // uuid.Nil when no journal is configured
	Text  RecognizedText
	Draft *entity.PurchaseOrderDraft
}

// Processor coordinates text recognition then field extraction.
type Processor struct {
	Logger   *slog.Logger
	Text     TextLayer
	Pages    PageRenderer
	OCR      PageRecognizer
	Fields   *parse.Extractor
	Jobs     JobJournal
	Defaults Options
}

func NewProcessor(logger *slog.Logger, text TextLayer, pages PageRenderer, ocr PageRecognizer, fields *parse.Extractor) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if fields == nil {
		fields = parse.NewExtractor(logger)
	}
	return &Processor{Logger: logger, Text: text, Pages: pages, OCR: ocr, Fields: fields}
}

// WithJournal records every Extract call in jobs.
func (p *Processor) WithJournal(jobs JobJournal) *Processor {
	p.Jobs = jobs
	return p
}

// WithDefaults sets the options used where a call leaves a field zero.
func (p *Processor) WithDefaults(o Options) *Processor {
	p.Defaults = o
	return p
}

// Extract runs the full pipeline. Unsupported media types and recognition
// failures stop it and no draft is returned; field misses never do.
func (p *Processor) Extract(ctx context.Context, doc entity.RawDocument, opts Options) (*Result, error) {
	ctx, reqID := common.EnsureRequestID(ctx)
	log := p.Logger.With("request_id", reqID, "source", doc.Name, "media_type", doc.MediaType)

	if !doc.MediaType.Supported() {
		log.Warn("processor.rejected", "reason", "unsupported media type")
		return nil, common.UnsupportedMediaType(string(doc.MediaType))
	}

	jobID := p.startJob(ctx, log, doc)

	// 1) text stage → RecognizedText via text layer or render+OCR
	text, err := p.RecognizeText(ctx, doc, opts)
	if err != nil {
		log.Error("processor.ocr.failed", "job_id", jobID, "err", err)
		p.failJob(ctx, log, jobID, err)
		return nil, err
	}
	log.Info("processor.ocr.ok",
		"job_id", jobID,
		"method", text.Method,
		"pages", text.Pages,
		"chars", len(text.Text),
	)
	p.recordOCR(ctx, log, jobID, text)

	// 2) field stage → draft; cannot fail
	draft := p.Fields.ExtractFields(text.Text)
	p.recordDraft(ctx, log, jobID, draft)
	log.Info("processor.parse.ok",
		"job_id", jobID,
		"po_number", draft.PONumber,
		"items", len(draft.Items),
	)
	return &Result{JobID: jobID, Text: text, Draft: draft}, nil
}

func (p *Processor) resolve(opts Options) Options {
	if opts.Language == "" {
		opts.Language = p.Defaults.Language
	}
	if opts.Scale <= 0 {
		opts.Scale = p.Defaults.Scale
	}
	if opts.PageWorkers <= 0 {
		opts.PageWorkers = p.Defaults.PageWorkers
	}
	if !opts.ForceOCR {
		opts.ForceOCR = p.Defaults.ForceOCR
	}
	return opts
}
