package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/po-extract/constants"
	"github.com/joseph-ayodele/po-extract/internal/common"
	"github.com/joseph-ayodele/po-extract/internal/entity"
)

const jobTable = "extract_job"

// fixed width so text ordering equals time ordering
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var jobColumns = []string{
	"id", "content_hash", "source_name", "media_type", "started_at", "finished_at",
	"status", "method", "pages", "language", "error_message", "ocr_text", "draft_json",
}

// OCROutcome is what the text stage produced for a job.
type OCROutcome struct {
	OCRText  string
	Method   string
	Pages    int
	Language string
}

// StartJob describes the document a new job runs over.
type StartJob struct {
	ContentHash string
	SourceName  string
	MediaType   constants.MediaType
}

type ExtractJobRepository interface {
	EnsureSchema(ctx context.Context) error
	Start(ctx context.Context, in StartJob) (*entity.ExtractJob, error)
	FinishOCR(ctx context.Context, jobID uuid.UUID, out OCROutcome) error
	FinishSuccess(ctx context.Context, jobID uuid.UUID, draft json.RawMessage) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error
	Get(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error)
	List(ctx context.Context, limit int) ([]*entity.ExtractJob, error)
}

type extractJobRepo struct {
	drv *entsql.Driver
	b   *entsql.DialectBuilder
	log *slog.Logger
	now func() time.Time
}

func NewExtractJobRepository(db *DB, log *slog.Logger) ExtractJobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractJobRepo{
		drv: db.Driver,
		b:   entsql.Dialect(db.Dialect),
		log: log,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *extractJobRepo) EnsureSchema(ctx context.Context) error {
	// TEXT and INTEGER mean the same thing to postgres and sqlite.
	q := `CREATE TABLE IF NOT EXISTS ` + jobTable + ` (
	id TEXT NOT NULL PRIMARY KEY,
	content_hash TEXT NOT NULL,
	source_name TEXT,
	media_type TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT,
	status TEXT NOT NULL,
	method TEXT,
	pages INTEGER,
	language TEXT,
	error_message TEXT,
	ocr_text TEXT,
	draft_json TEXT
)`
	if err := r.drv.Exec(ctx, q, []any{}, nil); err != nil {
		r.log.Error("extract_job schema failed", "err", err)
		return common.NewAppError("DATABASE_ERROR", "create extract_job", fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}
	return nil
}

func (r *extractJobRepo) Start(ctx context.Context, in StartJob) (*entity.ExtractJob, error) {
	job := &entity.ExtractJob{
		ID:          uuid.New(),
		ContentHash: in.ContentHash,
		SourceName:  in.SourceName,
		MediaType:   string(in.MediaType),
		StartedAt:   r.now(),
		Status:      string(constants.JobStatusRunning),
	}
	q, args := r.b.Insert(jobTable).
		Columns("id", "content_hash", "source_name", "media_type", "started_at", "status").
		Values(job.ID.String(), job.ContentHash, job.SourceName, job.MediaType, job.StartedAt.Format(timeLayout), job.Status).
		Query()
	if err := r.drv.Exec(ctx, q, args, nil); err != nil {
		r.log.Error("extract_job start failed", "content_hash", in.ContentHash, "err", err)
		return nil, common.NewAppError("DATABASE_ERROR", "start extract_job", fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}
	r.log.Info("extract_job started", "job_id", job.ID, "media_type", job.MediaType, "source", job.SourceName)
	return job, nil
}

func (r *extractJobRepo) FinishOCR(ctx context.Context, jobID uuid.UUID, out OCROutcome) error {
	u := r.b.Update(jobTable).
		Set("status", string(constants.JobStatusOCROK)).
		Set("ocr_text", out.OCRText).
		Set("method", out.Method).
		Set("pages", out.Pages).
		Set("language", out.Language).
		Where(entsql.EQ("id", jobID.String()))
	if err := r.update(ctx, u, jobID); err != nil {
		r.log.Error("extract_job finish(OCR_OK) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Info("extract_job finished (OCR_OK)", "job_id", jobID, "method", out.Method, "pages", out.Pages)
	return nil
}

func (r *extractJobRepo) FinishSuccess(ctx context.Context, jobID uuid.UUID, draft json.RawMessage) error {
	u := r.b.Update(jobTable).
		Set("status", string(constants.JobStatusParsed)).
		Set("draft_json", string(draft)).
		Set("finished_at", r.now().Format(timeLayout)).
		Where(entsql.EQ("id", jobID.String()))
	if err := r.update(ctx, u, jobID); err != nil {
		r.log.Error("extract_job finish(PARSED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Info("extract_job finished (PARSED)", "job_id", jobID)
	return nil
}

func (r *extractJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error {
	u := r.b.Update(jobTable).
		Set("status", string(constants.JobStatusFailed)).
		Set("error_message", message).
		Set("finished_at", r.now().Format(timeLayout)).
		Where(entsql.EQ("id", jobID.String()))
	if err := r.update(ctx, u, jobID); err != nil {
		r.log.Error("extract_job finish(FAILED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Warn("extract_job finished (FAILED)", "job_id", jobID, "error", message)
	return nil
}

func (r *extractJobRepo) update(ctx context.Context, u *entsql.UpdateBuilder, jobID uuid.UUID) error {
	q, args := u.Query()
	var res sql.Result
	if err := r.drv.Exec(ctx, q, args, &res); err != nil {
		return common.NewAppError("DATABASE_ERROR", "update extract_job", fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NewAppError("NOT_FOUND", fmt.Sprintf("extract_job %s", jobID), common.ErrNotFound)
	}
	return nil
}

func (r *extractJobRepo) Get(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error) {
	b := r.b
	q, args := b.Select(jobColumns...).
		From(b.Table(jobTable)).
		Where(entsql.EQ("id", jobID.String())).
		Query()
	jobs, err := r.query(ctx, q, args)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, common.NewAppError("NOT_FOUND", fmt.Sprintf("extract_job %s", jobID), common.ErrNotFound)
	}
	return jobs[0], nil
}

// List returns the most recent jobs first. limit <= 0 means 50.
func (r *extractJobRepo) List(ctx context.Context, limit int) ([]*entity.ExtractJob, error) {
	if limit <= 0 {
		limit = 50
	}
	b := r.b
	q, args := b.Select(jobColumns...).
		From(b.Table(jobTable)).
		OrderBy(entsql.Desc("started_at")).
		Limit(limit).
		Query()
	return r.query(ctx, q, args)
}

func (r *extractJobRepo) query(ctx context.Context, q string, args []any) ([]*entity.ExtractJob, error) {
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, q, args, rows); err != nil {
		return nil, common.NewAppError("DATABASE_ERROR", "query extract_job", fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}
	defer rows.Close()

	var out []*entity.ExtractJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, common.NewAppError("DATABASE_ERROR", "scan extract_job", fmt.Errorf("%w: %v", common.ErrDatabase, err))
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("DATABASE_ERROR", "query extract_job", fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}
	return out, nil
}

func scanJob(rows *entsql.Rows) (*entity.ExtractJob, error) {
	var (
		id, hash, mediaType, started, status string
		source, finished, method, lang       sql.NullString
		errMsg, ocrText, draft               sql.NullString
		pages                                sql.NullInt64
	)
	if err := rows.Scan(&id, &hash, &source, &mediaType, &started, &finished,
		&status, &method, &pages, &lang, &errMsg, &ocrText, &draft); err != nil {
		return nil, err
	}

	jobID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("job id %q: %w", id, err)
	}
	startedAt, err := time.Parse(timeLayout, started)
	if err != nil {
		return nil, fmt.Errorf("started_at %q: %w", started, err)
	}
	job := &entity.ExtractJob{
		ID:           jobID,
		ContentHash:  hash,
		SourceName:   source.String,
		MediaType:    mediaType,
		StartedAt:    startedAt,
		Status:       status,
		Method:       nullString(method),
		Language:     nullString(lang),
		ErrorMessage: nullString(errMsg),
		OCRText:      nullString(ocrText),
	}
	if finished.Valid {
		if t, err := time.Parse(timeLayout, finished.String); err == nil {
			job.FinishedAt = &t
		}
	}
	if pages.Valid {
		n := int(pages.Int64)
		job.Pages = &n
	}
	if draft.Valid && draft.String != "" {
		job.DraftJSON = json.RawMessage(draft.String)
	}
	return job, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
