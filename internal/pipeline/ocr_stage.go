package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/po-extract/constants"
	"github.com/joseph-ayodele/po-extract/internal/common"
	"github.com/joseph-ayodele/po-extract/internal/entity"
)

// RecognizedText is the raw text of one document, pages in ascending order
// separated by page markers.
type RecognizedText struct {
	Text     string `json:"text"`
	Method   string `json:"method"`
	Pages    int    `json:"pages"`
	Language string `json:"language,omitempty"`
}

// RecognizeText runs the rasterize and recognize stages only. A PDF is read
// from its text layer when it has one; otherwise, and for images, pages are
// rendered and passed through OCR.
func (p *Processor) RecognizeText(ctx context.Context, doc entity.RawDocument, opts Options) (RecognizedText, error) {
	opts = p.resolve(opts)
	if !doc.MediaType.Supported() {
		return RecognizedText{}, common.UnsupportedMediaType(string(doc.MediaType))
	}

	if doc.MediaType == constants.PDF && !opts.ForceOCR {
		txt, err := p.Text.ExtractEmbeddedText(ctx, doc)
		switch {
		case err == nil:
			return RecognizedText{Text: txt, Method: constants.MethodPDFText, Pages: strings.Count(txt, "\n") + 1}, nil
		case errors.Is(err, common.ErrNoEmbeddedText):
			p.Logger.Debug("no text layer; falling back to ocr", "source", doc.Name)
		default:
			return RecognizedText{}, err
		}
	}

	method := constants.MethodImageOCR
	if doc.MediaType == constants.PDF {
		method = constants.MethodPDFOCR
	}

	var (
		pages []string
		n     int
		err   error
	)
	if opts.PageWorkers > 1 {
		pages, n, err = p.recognizeConcurrently(ctx, doc, opts)
	} else {
		pages, n, err = p.recognizeSequentially(ctx, doc, opts)
	}
	if err != nil {
		return RecognizedText{}, err
	}
	return RecognizedText{Text: joinPages(pages), Method: method, Pages: n, Language: opts.Language}, nil
}

func (p *Processor) recognizeSequentially(ctx context.Context, doc entity.RawDocument, opts Options) ([]string, int, error) {
	var pages []string
	n, err := p.Pages.EachPage(ctx, doc, opts.Scale, func(img entity.PageImage) error {
		txt, err := p.OCR.Recognize(ctx, img, opts.Language)
		if err != nil {
			return err
		}
		pages = append(pages, txt)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return pages, n, nil
}

// recognizeConcurrently keeps rendering on the caller's goroutine and fans
// recognition out to at most PageWorkers goroutines. Rendering blocks while
// all workers are busy, which bounds the number of page images in memory.
func (p *Processor) recognizeConcurrently(ctx context.Context, doc entity.RawDocument, opts Options) ([]string, int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.PageWorkers)

	var (
		mu    sync.Mutex
		texts = map[int]string{}
	)
	n, renderErr := p.Pages.EachPage(gctx, doc, opts.Scale, func(img entity.PageImage) error {
		g.Go(func() error {
			txt, err := p.OCR.Recognize(gctx, img, opts.Language)
			if err != nil {
				return err
			}
			mu.Lock()
			texts[img.Index] = txt
			mu.Unlock()
			return nil
		})
		return nil
	})
	// a recognition error cancels gctx, which surfaces here as a context
	// error from the renderer; report the recognition error instead
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if renderErr != nil {
		return nil, 0, renderErr
	}

	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		txt, ok := texts[i]
		if !ok {
			return nil, 0, fmt.Errorf("page %d missing from recognition results: %w", i, common.ErrRecognitionFailed)
		}
		pages = append(pages, txt)
	}
	return pages, n, nil
}

// joinPages puts a page marker before every page after the first.
func joinPages(pages []string) string {
	var b strings.Builder
	for i, txt := range pages {
		if i > 0 {
			b.WriteString("\n")
			fmt.Fprintf(&b, constants.PageMarkerFormat, i+1)
			b.WriteString("\n")
		}
		b.WriteString(txt)
	}
	return b.String()
}
