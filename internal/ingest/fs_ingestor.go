package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/po-extract/constants"
	"github.com/joseph-ayodele/po-extract/internal/common"
	"github.com/joseph-ayodele/po-extract/internal/entity"
)

// LoadFile reads path into a RawDocument. The media type comes from the
// extension; unknown extensions fail with common.ErrUnsupportedMediaType.
// maxBytes <= 0 disables the size check.
func LoadFile(path string, maxBytes int64) (entity.RawDocument, Source, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return entity.RawDocument{}, Source{}, err
	}

	ext := filepath.Ext(abs)
	mt, ok := constants.MediaTypeFromExt(ext)
	if !ok {
		return entity.RawDocument{}, Source{}, common.UnsupportedMediaType(constants.NormalizeExt(ext))
	}

	f, err := os.Open(abs)
	if err != nil {
		return entity.RawDocument{}, Source{}, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	st, err := f.Stat()
	if err != nil {
		return entity.RawDocument{}, Source{}, err
	}
	if st.IsDir() {
		return entity.RawDocument{}, Source{}, common.NewAppError("INVALID_INPUT", fmt.Sprintf("%s is a directory", abs), common.ErrInvalidInput)
	}
	if maxBytes > 0 && st.Size() > maxBytes {
		return entity.RawDocument{}, Source{}, common.NewAppError("INVALID_INPUT",
			fmt.Sprintf("%s is %d bytes, limit is %d", abs, st.Size(), maxBytes), common.ErrInvalidInput)
	}

	h := sha256.New()
	data, err := io.ReadAll(io.TeeReader(f, h))
	if err != nil {
		return entity.RawDocument{}, Source{}, fmt.Errorf("read %s: %w", abs, err)
	}

	src := Source{
		Path:      abs,
		Name:      filepath.Base(abs),
		MediaType: mt,
		Size:      int64(len(data)),
		HashHex:   hex.EncodeToString(h.Sum(nil)),
	}
	return entity.RawDocument{Data: data, MediaType: mt, Name: src.Name}, src, nil
}
