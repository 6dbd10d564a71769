package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMediaType(t *testing.T) {
	tests := map[string]MediaType{
		"pdf":                       PDF,
		"application/pdf":           PDF,
		" Application/PDF; v=1.7 ":  PDF,
		"image/png":                 PNG,
		"jpg":                       JPEG,
		"image/jpeg":                JPEG,
		"image/x-ms-bmp":            BMP,
		"tif":                       TIFF,
		".TIFF":                     TIFF,
	}
	for in, want := range tests {
		got, ok := ParseMediaType(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "gif", "image/webp", "text/plain"} {
		_, ok := ParseMediaType(in)
		assert.False(t, ok, in)
	}
}

func TestMediaTypeHelpers(t *testing.T) {
	assert.True(t, PNG.IsImage())
	assert.False(t, PDF.IsImage())
	assert.True(t, PDF.Supported())
	assert.False(t, MediaType("gif").Supported())

	mt, ok := MediaTypeFromExt(".JPEG")
	assert.True(t, ok)
	assert.Equal(t, JPEG, mt)
	_, ok = MediaTypeFromExt("")
	assert.False(t, ok)
	assert.Equal(t, "pdf", NormalizeExt(".PDF"))
}
