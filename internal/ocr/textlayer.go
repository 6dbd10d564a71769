package ocr

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/po-extract/constants"
	"github.com/joseph-ayodele/po-extract/internal/common"
	"github.com/joseph-ayodele/po-extract/internal/entity"
)

// ExtractEmbeddedText returns the PDF text layer: the text runs of a page
// joined by single spaces, pages joined by newlines. It fails with
// common.ErrNoEmbeddedText when the layer is missing, blank or unreadable,
// which callers treat as "render and OCR instead".
func (r *Rasterizer) ExtractEmbeddedText(ctx context.Context, doc entity.RawDocument) (string, error) {
	if doc.MediaType != constants.PDF {
		if !doc.MediaType.Supported() {
			return "", common.UnsupportedMediaType(string(doc.MediaType))
		}
		return "", fmt.Errorf("%s has no text layer: %w", doc.MediaType, common.ErrNoEmbeddedText)
	}
	if len(doc.Data) == 0 {
		return "", fmt.Errorf("empty pdf: %w", common.ErrNoEmbeddedText)
	}

	pages, err := readTextLayer(ctx, doc.Data, r.cfg.MaxPages)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		r.logger.Debug("text layer unreadable", "error", err)
		return "", fmt.Errorf("%v: %w", err, common.ErrNoEmbeddedText)
	}

	text := strings.Join(pages, "\n")
	if strings.TrimSpace(text) == "" {
		return "", common.ErrNoEmbeddedText
	}
	r.logger.Debug("text layer extracted", "pages", len(pages), "bytes", len(text))
	return text, nil
}

// readTextLayer returns one string per page. The pdf package panics on some
// malformed inputs; those surface as errors.
func readTextLayer(ctx context.Context, data []byte, maxPages int) (pages []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("pdf text layer: %v", rec)
		}
	}()

	rd, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("pdf text layer: %w", err)
	}
	n := rd.NumPage()
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := rd.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		var runs []string
		for _, row := range rows {
			for _, t := range row.Content {
				if s := strings.TrimSpace(t.S); s != "" {
					runs = append(runs, s)
				}
			}
		}
		pages = append(pages, strings.Join(runs, " "))
	}
	return pages, nil
}
