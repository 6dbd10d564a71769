package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExtractJob represents an extract job for data transfer between layers.
type ExtractJob struct {
	ID           uuid.UUID       `json:"id"`
	ContentHash  string          `json:"content_hash"`
	SourceName   string          `json:"source_name,omitempty"`
	MediaType    string          `json:"media_type"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
	Status       string          `json:"status"`
	Method       *string         `json:"method,omitempty"`
	Pages        *int            `json:"pages,omitempty"`
	Language     *string         `json:"language,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	OCRText      *string         `json:"ocr_text,omitempty"`
	DraftJSON    json.RawMessage `json:"draft_json,omitempty"`
}
