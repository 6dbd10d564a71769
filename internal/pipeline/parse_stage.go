package processor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/po-extract/internal/entity"
	"github.com/joseph-ayodele/po-extract/internal/repository"
)

// JobJournal is the subset of the extract_job repository the processor
// writes to.
type JobJournal interface {
	Start(ctx context.Context, in repository.StartJob) (*entity.ExtractJob, error)
	FinishOCR(ctx context.Context, jobID uuid.UUID, out repository.OCROutcome) error
	FinishSuccess(ctx context.Context, jobID uuid.UUID, draft json.RawMessage) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error
}

// ContentHash is the hex sha256 of a document's bytes.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Journal writes are best effort: a failed write is logged and the
// extraction carries on.

func (p *Processor) startJob(ctx context.Context, log *slog.Logger, doc entity.RawDocument) uuid.UUID {
	if p.Jobs == nil {
		return uuid.Nil
	}
	job, err := p.Jobs.Start(ctx, repository.StartJob{
		ContentHash: ContentHash(doc.Data),
		SourceName:  doc.Name,
		MediaType:   doc.MediaType,
	})
	if err != nil {
		log.Warn("journal start failed", "err", err)
		return uuid.Nil
	}
	return job.ID
}

func (p *Processor) recordOCR(ctx context.Context, log *slog.Logger, jobID uuid.UUID, text RecognizedText) {
	if p.Jobs == nil || jobID == uuid.Nil {
		return
	}
	err := p.Jobs.FinishOCR(ctx, jobID, repository.OCROutcome{
		OCRText:  text.Text,
		Method:   text.Method,
		Pages:    text.Pages,
		Language: text.Language,
	})
	if err != nil {
		log.Warn("journal ocr update failed", "job_id", jobID, "err", err)
	}
}

func (p *Processor) recordDraft(ctx context.Context, log *slog.Logger, jobID uuid.UUID, draft *entity.PurchaseOrderDraft) {
	if p.Jobs == nil || jobID == uuid.Nil {
		return
	}
	raw, err := json.Marshal(draft)
	if err != nil {
		log.Warn("journal draft encode failed", "job_id", jobID, "err", err)
		return
	}
	if err := p.Jobs.FinishSuccess(ctx, jobID, raw); err != nil {
		log.Warn("journal success update failed", "job_id", jobID, "err", err)
	}
}

func (p *Processor) failJob(ctx context.Context, log *slog.Logger, jobID uuid.UUID, cause error) {
	if p.Jobs == nil || jobID == uuid.Nil {
		return
	}
	// the request context may already be done; the failure still gets recorded
	ctx = context.WithoutCancel(ctx)
	if err := p.Jobs.FinishFailure(ctx, jobID, cause.Error()); err != nil {
		log.Warn("journal failure update failed", "job_id", jobID, "err", err)
	}
}
