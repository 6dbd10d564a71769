package common

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_EnvDefaults(t *testing.T) {
	t.Setenv("OCR_LANG", "tam")
	t.Setenv("OCR_PAGE_WORKERS", "3")
	t.Setenv("OCR_SCALE", "not-a-number")
	t.Setenv("REQUEST_TIMEOUT", "45s")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "tam", cfg.OCR.Language)
	assert.Equal(t, 3, cfg.OCR.PageWorkers)
	assert.Equal(t, 2.5, cfg.OCR.Scale, "unparseable values fall back")
	assert.Equal(t, 45*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "pdftoppm", cfg.OCR.Pdftoppm)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_YAMLOverridesEnv(t *testing.T) {
	t.Setenv("OCR_LANG", "tam")
	path := filepath.Join(t.TempDir(), "poextract.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ocr:
  language: eng+hin
  max_pages: 4
database:
  dsn: /tmp/jobs.db
log:
  level: debug
  format: text
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "eng+hin", cfg.OCR.Language)
	assert.Equal(t, 4, cfg.OCR.MaxPages)
	assert.Equal(t, "/tmp/jobs.db", cfg.Database.DSN)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
	assert.NotNil(t, NewLogger(cfg.Log))
}

func TestLoadConfig_BadFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ocr: [unclosed"), 0o600))
	_, err = LoadConfig(path)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFIG_ERROR", appErr.Code)
}

func TestConfigValidate(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	cfg.OCR.Scale = 10
	cfg.OCR.PageWorkers = 100
	cfg.Log.Format = "xml"
	err = cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "ocr.scale")
	assert.Contains(t, err.Error(), "ocr.page_workers")
	assert.Contains(t, err.Error(), "log.format")
}
