package ingest

import (
	"github.com/joseph-ayodele/po-extract/constants"
)

// Source is one discovered document on disk.
type Source struct {
	Path         string
	Name         string
	MediaType    constants.MediaType
	Size         int64
	HashHex      string
	Deduplicated bool // same bytes as an earlier Source in the same scan
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// FileError is a path that could not be read during a scan.
type FileError struct {
	Path string
	Err  string
}

// Options filter a directory scan.
type Options struct {
	// Exts lists extensions to include ("pdf", ".PNG"); empty means every
	// supported type.
	Exts       []string
	SkipHidden bool
	// MaxBytes skips larger files; 0 means no limit.
	MaxBytes int64
}

func (o Options) extSet() map[string]struct{} {
	if len(o.Exts) == 0 {
		return constants.AllowedExtensions
	}
	exts := map[string]struct{}{}
	for _, e := range o.Exts {
		if e = constants.NormalizeExt(e); e != "" {
			exts[e] = struct{}{}
		}
	}
	return exts
}
