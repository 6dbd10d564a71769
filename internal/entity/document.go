package entity

import "github.com/joseph-ayodele/po-extract/constants"

// RawDocument is an uploaded file held in memory for one extraction request.
// It is never mutated by the pipeline.
type RawDocument struct {
	Data      []byte
	MediaType constants.MediaType
	Name      string // optional, used for logs and exports only
}

// PageImage is one rasterized page. Data holds the encoded image (PNG for
// rendered PDF pages, the original bytes for image uploads).
type PageImage struct {
	Index  int // 1-based
	Width  int
	Height int
	Format constants.MediaType
	Data   []byte
}
