package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/joseph-ayodele/po-extract/constants"
	"github.com/joseph-ayodele/po-extract/internal/common"
	"github.com/joseph-ayodele/po-extract/internal/entity"
)

var disablePdfcpuConfig sync.Once

// Rasterizer turns a RawDocument into page images, or reads its PDF text
// layer. It holds no per-request state; temp files live for one call.
type Rasterizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewRasterizer(cfg Config, logger *slog.Logger) *Rasterizer {
	logger = orDefault(logger)
	disablePdfcpuConfig.Do(api.DisableConfigDir)
	return &Rasterizer{cfg: cfg.withDefaults(), runner: execRunner{logger: logger}, logger: logger}
}

// WithRunner swaps the command runner (tests).
func (r *Rasterizer) WithRunner(run Runner) *Rasterizer {
	r.runner = run
	return r
}

// RenderPageImages renders every page of doc. Images come back as a single
// page, unscaled. PDF pages are rendered at 72*scale DPI, in page order.
func (r *Rasterizer) RenderPageImages(ctx context.Context, doc entity.RawDocument, scale float64) ([]entity.PageImage, error) {
	var pages []entity.PageImage
	_, err := r.EachPage(ctx, doc, scale, func(p entity.PageImage) error {
		pages = append(pages, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pages, nil
}

// EachPage renders doc one page at a time and hands each page to fn before
// rendering the next, so at most one rendered PDF page is held here. ctx is
// checked before every page. It returns the number of pages delivered.
func (r *Rasterizer) EachPage(ctx context.Context, doc entity.RawDocument, scale float64, fn func(entity.PageImage) error) (int, error) {
	switch {
	case doc.MediaType == constants.PDF:
		return r.eachPDFPage(ctx, doc, scale, fn)
	case doc.MediaType.IsImage():
		if len(doc.Data) == 0 {
			return 0, recognitionFailed(1, errors.New("empty image"))
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		page := entity.PageImage{Index: 1, Format: doc.MediaType, Data: doc.Data}
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(doc.Data)); err == nil {
			page.Width, page.Height = cfg.Width, cfg.Height
		} else {
			r.logger.Debug("image header not decodable; passing through", "media_type", doc.MediaType, "error", err)
		}
		if err := fn(page); err != nil {
			return 0, err
		}
		return 1, nil
	default:
		r.logger.Error("unsupported media type", "media_type", doc.MediaType)
		return 0, common.UnsupportedMediaType(string(doc.MediaType))
	}
}

func (r *Rasterizer) eachPDFPage(ctx context.Context, doc entity.RawDocument, scale float64, fn func(entity.PageImage) error) (int, error) {
	if len(doc.Data) == 0 {
		return 0, recognitionFailed(0, errors.New("empty pdf"))
	}
	total, err := pdfPageCount(doc.Data)
	if err != nil {
		return 0, recognitionFailed(0, err)
	}
	if total == 0 {
		return 0, recognitionFailed(0, errors.New("pdf has no pages"))
	}
	if r.cfg.MaxPages > 0 && total > r.cfg.MaxPages {
		r.logger.Warn("pdf exceeds max pages; truncating", "pages", total, "max_pages", r.cfg.MaxPages)
		total = r.cfg.MaxPages
	}

	tmpDir, err := os.MkdirTemp(r.cfg.TempDir, "poextract-*")
	if err != nil {
		return 0, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			r.logger.Warn("failed to remove temp dir", "path", path, "error", err)
		}
	}(tmpDir)

	in := filepath.Join(tmpDir, "in.pdf")
	if err := os.WriteFile(in, doc.Data, 0o600); err != nil {
		return 0, err
	}

	dpi := renderDPI(scale)
	r.logger.Debug("rendering pdf", "pages", total, "dpi", dpi)
	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			return n - 1, err
		}
		page, err := r.renderPDFPage(ctx, in, tmpDir, n, dpi)
		if err != nil {
			return n - 1, err
		}
		if err := fn(page); err != nil {
			return n - 1, err
		}
	}
	return total, nil
}

// renderPDFPage runs: pdftoppm -f n -l n -r dpi -png -singlefile in.pdf tmp/page-n
func (r *Rasterizer) renderPDFPage(ctx context.Context, in, dir string, n, dpi int) (entity.PageImage, error) {
	start := time.Now()
	prefix := filepath.Join(dir, "page-"+strconv.Itoa(n))
	num := strconv.Itoa(n)
	_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm, nil,
		"-f", num, "-l", num, "-r", strconv.Itoa(dpi), "-png", "-singlefile", in, prefix)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return entity.PageImage{}, ctxErr
		}
		return entity.PageImage{}, recognitionFailed(n, fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512)))
	}

	out := prefix + ".png"
	data, err := os.ReadFile(out)
	if err != nil {
		return entity.PageImage{}, recognitionFailed(n, fmt.Errorf("pdftoppm produced no image: %w", err))
	}
	_ = os.Remove(out)

	page := entity.PageImage{Index: n, Format: constants.PNG, Data: data}
	if cfg, err := png.DecodeConfig(bytes.NewReader(data)); err == nil {
		page.Width, page.Height = cfg.Width, cfg.Height
	}
	r.logger.Debug("rendered page", "page", n, "width", page.Width, "height", page.Height,
		"bytes", len(data), "duration_ms", time.Since(start).Milliseconds())
	return page, nil
}

func renderDPI(scale float64) int {
	if scale <= 0 {
		scale = DefaultScale
	}
	dpi := int(math.Round(72 * scale))
	if dpi < 36 {
		dpi = 36
	}
	return dpi
}

func pdfPageCount(data []byte) (n int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			n, err = 0, fmt.Errorf("pdfcpu read: %v", rec)
		}
	}()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("pdfcpu read: %w", err)
	}
	return ctx.PageCount, nil
}
