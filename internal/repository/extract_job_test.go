package repository

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/po-extract/constants"
	"github.com/joseph-ayodele/po-extract/internal/common"
)

func openTestRepo(t *testing.T) ExtractJobRepository {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, Config{DSN: "sqlite://" + filepath.Join(t.TempDir(), "jobs.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(nil) })
	require.NoError(t, db.HealthCheck(ctx, time.Second, nil))

	repo := NewExtractJobRepository(db, nil)
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx), "schema creation is repeatable")
	return repo
}

func TestExtractJobRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	job, err := repo.Start(ctx, StartJob{ContentHash: "abc123", SourceName: "po.pdf", MediaType: constants.PDF})
	require.NoError(t, err)
	assert.Equal(t, string(constants.JobStatusRunning), job.Status)

	got, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, "po.pdf", got.SourceName)
	assert.Equal(t, "pdf", got.MediaType)
	assert.Nil(t, got.FinishedAt)
	assert.Nil(t, got.Pages)
	assert.WithinDuration(t, job.StartedAt, got.StartedAt, time.Microsecond)

	require.NoError(t, repo.FinishOCR(ctx, job.ID, OCROutcome{OCRText: "PO NO. : 1", Method: constants.MethodPDFText, Pages: 2, Language: "eng"}))
	got, err = repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, string(constants.JobStatusOCROK), got.Status)
	require.NotNil(t, got.Pages)
	assert.Equal(t, 2, *got.Pages)
	require.NotNil(t, got.OCRText)
	assert.Equal(t, "PO NO. : 1", *got.OCRText)

	draft := json.RawMessage(`{"po_number":"1","tax_details":{"cgst":0,"sgst":0,"igst":0},"items":[]}`)
	require.NoError(t, repo.FinishSuccess(ctx, job.ID, draft))
	got, err = repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, string(constants.JobStatusParsed), got.Status)
	assert.NotNil(t, got.FinishedAt)
	assert.JSONEq(t, string(draft), string(got.DraftJSON))
}

func TestExtractJobRepository_Failure(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	job, err := repo.Start(ctx, StartJob{ContentHash: "h", MediaType: constants.PNG})
	require.NoError(t, err)
	require.NoError(t, repo.FinishFailure(ctx, job.ID, "recognition failed: page 1"))

	got, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, string(constants.JobStatusFailed), got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "recognition failed: page 1", *got.ErrorMessage)
}

func TestExtractJobRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	_, err := repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = repo.FinishFailure(ctx, uuid.New(), "x")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestExtractJobRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		job, err := repo.Start(ctx, StartJob{ContentHash: "h", MediaType: constants.PDF})
		require.NoError(t, err)
		ids = append(ids, job.ID)
		time.Sleep(2 * time.Millisecond)
	}

	jobs, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, ids[2], jobs[0].ID)
	assert.Equal(t, ids[1], jobs[1].ID)
}

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{}, nil)
	assert.Error(t, err)
}
