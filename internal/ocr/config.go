package ocr

import "log/slog"

// DefaultScale is the render multiplier used when callers pass scale <= 0.
// 1.0 renders at 72 DPI.
const DefaultScale = 2.5

// DefaultLanguage is the tesseract language used when none is given.
const DefaultLanguage = "eng"

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Language    string // default "eng"
	TessdataDir string
	PSM         int // e.g., 6 is good for uniform block of text
	OEM         int // 1 = LSTM; leave 0 to use default

	MaxPages int    // 0 = no limit
	TempDir  string // parent for request-scoped temp dirs; "" = os.TempDir()
}

func (c Config) withDefaults() Config {
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	return c
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
