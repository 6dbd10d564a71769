package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/po-extract/internal/entity"
)

// Recognizer runs tesseract over one page image.
type Recognizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewRecognizer(cfg Config, logger *slog.Logger) *Recognizer {
	logger = orDefault(logger)
	return &Recognizer{cfg: cfg.withDefaults(), runner: execRunner{logger: logger}, logger: logger}
}

// WithRunner swaps the command runner (tests).
func (r *Recognizer) WithRunner(run Runner) *Recognizer {
	r.runner = run
	return r
}

// Recognize returns the engine's transcription of page, trimmed. No
// confidence filtering is applied. An empty language uses the configured
// default. Engine failures match common.ErrRecognitionFailed and carry the
// page index.
func (r *Recognizer) Recognize(ctx context.Context, page entity.PageImage, language string) (string, error) {
	if language == "" {
		language = r.cfg.Language
	}
	if len(page.Data) == 0 {
		return "", recognitionFailed(page.Index, errors.New("empty page image"))
	}

	start := time.Now()
	// tesseract stdin stdout -l <lang>
	out, errb, err := r.runner.Run(ctx, r.cfg.Tesseract, page.Data, r.args(language)...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", recognitionFailed(page.Index, fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512)))
	}

	txt := strings.TrimSpace(string(out))
	r.logger.Debug("page recognized", "page", page.Index, "lang", language,
		"chars", len(txt), "duration_ms", time.Since(start).Milliseconds())
	return txt, nil
}

func (r *Recognizer) args(language string) []string {
	args := []string{"stdin", "stdout", "-l", language}
	if r.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", r.cfg.TessdataDir)
	}
	if r.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(r.cfg.PSM))
	}
	if r.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(r.cfg.OEM))
	}
	return args
}
