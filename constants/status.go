package constants

// JobStatus is the canonical status for rows in extract_job.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusRunning JobStatus = "RUNNING" // in progress
	JobStatusOCROK   JobStatus = "OCR_OK"  // text obtained, fields not yet extracted
	JobStatusParsed  JobStatus = "PARSED"  // draft extracted
	JobStatusFailed  JobStatus = "FAILED"  // terminal failure
)

// Extraction methods recorded on jobs and results.
const (
	MethodPDFText  = "pdf-text"
	MethodPDFOCR   = "pdf-ocr"
	MethodImageOCR = "image-ocr"
)

// PageMarkerFormat separates recognized pages in RecognizedText.
const PageMarkerFormat = "--- page %d ---"
