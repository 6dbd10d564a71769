package ocr

import (
	"fmt"

	"github.com/joseph-ayodele/po-extract/internal/common"
)

// RecognitionError reports a page that could not be rendered or recognized.
// Page is 0 when the failure is not tied to a single page (unreadable PDF).
// It matches common.ErrRecognitionFailed with errors.Is.
type RecognitionError struct {
	Page int
	Err  error
}

func (e *RecognitionError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("recognition failed on page %d: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("recognition failed: %v", e.Err)
}

func (e *RecognitionError) Unwrap() []error {
	return []error{common.ErrRecognitionFailed, e.Err}
}

func recognitionFailed(page int, err error) error {
	return &RecognitionError{Page: page, Err: err}
}
