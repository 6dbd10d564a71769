package constants

import "strings"

// MediaType is the declared type of an uploaded document.
type MediaType string

const (
	PDF  MediaType = "pdf"
	PNG  MediaType = "png"
	JPEG MediaType = "jpeg"
	BMP  MediaType = "bmp"
	TIFF MediaType = "tiff"
)

// MediaTypes holds every supported media type, PDF first.
var MediaTypes = []MediaType{PDF, PNG, JPEG, BMP, TIFF}

// AllowedExtensions holds the default allowed file extensions for batch discovery.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"bmp":  {},
	"tif":  {},
	"tiff": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsImage reports whether m is one of the raster image types.
func (m MediaType) IsImage() bool {
	switch m {
	case PNG, JPEG, BMP, TIFF:
		return true
	}
	return false
}

// Supported reports whether m is a known media type.
func (m MediaType) Supported() bool {
	return m == PDF || m.IsImage()
}

// ParseMediaType maps a declared type to a MediaType. It accepts the short
// names ("pdf", "jpg"), MIME types ("application/pdf", "image/tiff") and
// file extensions with or without the dot. ok is false for anything else.
func ParseMediaType(s string) (MediaType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.TrimPrefix(s, "application/")
	s = strings.TrimPrefix(s, "image/")
	s = strings.TrimPrefix(s, "x-")
	switch NormalizeExt(s) {
	case "pdf":
		return PDF, true
	case "png":
		return PNG, true
	case "jpg", "jpeg", "pjpeg":
		return JPEG, true
	case "bmp", "ms-bmp":
		return BMP, true
	case "tif", "tiff":
		return TIFF, true
	}
	return "", false
}

// MediaTypeFromExt maps a file extension (".PDF", "jpg") to a MediaType.
func MediaTypeFromExt(ext string) (MediaType, bool) {
	ext = NormalizeExt(ext)
	if ext == "" {
		return "", false
	}
	return ParseMediaType(ext)
}
