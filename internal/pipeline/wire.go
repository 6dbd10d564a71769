package processor

import (
	"log/slog"

	"github.com/joseph-ayodele/po-extract/internal/common"
	"github.com/joseph-ayodele/po-extract/internal/ocr"
	parse "github.com/joseph-ayodele/po-extract/internal/pipeline/parsefields"
)

// NewFromConfig builds a Processor backed by pdftoppm and tesseract.
func NewFromConfig(cfg common.OCRConfig, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	oc := ocr.Config{
		Pdftoppm:    cfg.Pdftoppm,
		Tesseract:   cfg.Tesseract,
		Language:    cfg.Language,
		TessdataDir: cfg.TessdataDir,
		PSM:         cfg.PSM,
		OEM:         cfg.OEM,
		MaxPages:    cfg.MaxPages,
		TempDir:     cfg.TempDir,
	}
	raster := ocr.NewRasterizer(oc, logger)
	p := NewProcessor(logger, raster, raster, ocr.NewRecognizer(oc, logger), parse.NewExtractor(logger))
	return p.WithDefaults(Options{
		Language:    cfg.Language,
		Scale:       cfg.Scale,
		PageWorkers: cfg.PageWorkers,
	})
}
