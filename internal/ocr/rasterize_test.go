package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/po-extract/constants"
	"github.com/joseph-ayodele/po-extract/internal/common"
	"github.com/joseph-ayodele/po-extract/internal/entity"
)

func TestRenderPageImages_ImagePassesThrough(t *testing.T) {
	run := &fakeRunner{fn: func(string, []byte, []string) ([]byte, []byte, error) {
		t.Fatal("images must not shell out")
		return nil, nil, nil
	}}
	r := NewRasterizer(Config{}, nil).WithRunner(run)

	data := pngBytes(t, 3, 2)
	pages, err := r.RenderPageImages(context.Background(), entity.RawDocument{Data: data, MediaType: constants.PNG}, 2.5)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].Index)
	assert.Equal(t, 3, pages[0].Width)
	assert.Equal(t, 2, pages[0].Height)
	assert.Equal(t, data, pages[0].Data)
}

func TestRenderPageImages_UndecodableImageStillOnePage(t *testing.T) {
	r := NewRasterizer(Config{}, nil)
	pages, err := r.RenderPageImages(context.Background(), entity.RawDocument{Data: []byte("not really a bmp"), MediaType: constants.BMP}, 1)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Zero(t, pages[0].Width)
}

func TestRenderPageImages_EmptyImage(t *testing.T) {
	r := NewRasterizer(Config{}, nil)
	_, err := r.RenderPageImages(context.Background(), entity.RawDocument{MediaType: constants.JPEG}, 1)
	assert.ErrorIs(t, err, common.ErrRecognitionFailed)
}

func TestRenderPageImages_Unsupported(t *testing.T) {
	r := NewRasterizer(Config{}, nil)
	pages, err := r.RenderPageImages(context.Background(), entity.RawDocument{Data: []byte("GIF89a"), MediaType: "gif"}, 1)
	assert.ErrorIs(t, err, common.ErrUnsupportedMediaType)
	assert.Nil(t, pages)
}

func TestRenderPageImages_PDF(t *testing.T) {
	run := &fakeRunner{fn: pdftoppmWriting(t, 20, 30)}
	r := NewRasterizer(Config{Pdftoppm: "/opt/bin/pdftoppm"}, nil).WithRunner(run)

	doc := entity.RawDocument{Data: buildTextPDF("page one", "page two", "page three"), MediaType: constants.PDF}
	pages, err := r.RenderPageImages(context.Background(), doc, 2.5)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	for i, p := range pages {
		assert.Equal(t, i+1, p.Index)
		assert.Equal(t, constants.PNG, p.Format)
		assert.Equal(t, 20, p.Width)
		assert.Equal(t, 30, p.Height)
	}

	require.Len(t, run.calls, 3)
	first := run.calls[0]
	assert.Equal(t, "/opt/bin/pdftoppm", first.name)
	assert.Equal(t, []string{"-f", "1", "-l", "1", "-r", "180", "-png", "-singlefile"}, first.args[:8])
	assert.Equal(t, "3", run.calls[2].args[1])

	// request-scoped temp dir is gone once rendering returns
	_, statErr := os.Stat(filepath.Dir(first.args[8]))
	assert.True(t, os.IsNotExist(statErr))
}

func TestEachPage_MaxPages(t *testing.T) {
	run := &fakeRunner{fn: pdftoppmWriting(t, 1, 1)}
	r := NewRasterizer(Config{MaxPages: 2}, nil).WithRunner(run)

	doc := entity.RawDocument{Data: buildTextPDF("a", "b", "c", "d"), MediaType: constants.PDF}
	n, err := r.EachPage(context.Background(), doc, 1, func(entity.PageImage) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, run.calls, 2)
}

func TestEachPage_RenderFailureCarriesPage(t *testing.T) {
	calls := 0
	ok := pdftoppmWriting(t, 1, 1)
	run := &fakeRunner{fn: func(name string, stdin []byte, args []string) ([]byte, []byte, error) {
		calls++
		if calls == 2 {
			return nil, []byte("Syntax Error: broken xref"), errors.New("exit status 1")
		}
		return ok(name, stdin, args)
	}}
	tmp := t.TempDir()
	r := NewRasterizer(Config{TempDir: tmp}, nil).WithRunner(run)

	doc := entity.RawDocument{Data: buildTextPDF("a", "b", "c"), MediaType: constants.PDF}
	n, err := r.EachPage(context.Background(), doc, 1, func(entity.PageImage) error { return nil })
	require.Error(t, err)
	assert.Equal(t, 1, n)

	var recErr *RecognitionError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, 2, recErr.Page)
	assert.ErrorIs(t, err, common.ErrRecognitionFailed)
	assert.Contains(t, err.Error(), "broken xref")

	entries, readErr := os.ReadDir(tmp)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "temp files cleaned up on failure")
}

func TestEachPage_Canceled(t *testing.T) {
	run := &fakeRunner{fn: pdftoppmWriting(t, 1, 1)}
	r := NewRasterizer(Config{}, nil).WithRunner(run)

	ctx, cancel := context.WithCancel(context.Background())
	doc := entity.RawDocument{Data: buildTextPDF("a", "b", "c"), MediaType: constants.PDF}
	n, err := r.EachPage(ctx, doc, 1, func(p entity.PageImage) error {
		if p.Index == 1 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, n)
	assert.Len(t, run.calls, 1)
}

func TestEachPage_CorruptPDF(t *testing.T) {
	r := NewRasterizer(Config{}, nil).WithRunner(&fakeRunner{fn: pdftoppmWriting(t, 1, 1)})
	_, err := r.EachPage(context.Background(), entity.RawDocument{Data: []byte("%PDF-1.4 garbage"), MediaType: constants.PDF}, 1,
		func(entity.PageImage) error { return nil })
	assert.ErrorIs(t, err, common.ErrRecognitionFailed)
}

func TestPDFPageCount(t *testing.T) {
	n, err := pdfPageCount(buildTextPDF("one", "", "three"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRenderDPI(t *testing.T) {
	tests := []struct {
		scale float64
		want  int
	}{
		{0, 180},
		{-1, 180},
		{1, 72},
		{2, 144},
		{2.5, 180},
		{0.1, 36},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, renderDPI(tt.scale), "scale %v", tt.scale)
	}
}
