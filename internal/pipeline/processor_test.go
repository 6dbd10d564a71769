package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/po-extract/constants"
	"github.com/joseph-ayodele/po-extract/internal/common"
	"github.com/joseph-ayodele/po-extract/internal/entity"
	"github.com/joseph-ayodele/po-extract/internal/repository"
)

type fakeTextLayer struct {
	text  string
	err   error
	calls atomic.Int32
}

func (f *fakeTextLayer) ExtractEmbeddedText(_ context.Context, _ entity.RawDocument) (string, error) {
	f.calls.Add(1)
	return f.text, f.err
}

type fakeRenderer struct {
	pages int
	err   error
	calls atomic.Int32
}

func (f *fakeRenderer) EachPage(ctx context.Context, _ entity.RawDocument, _ float64, fn func(entity.PageImage) error) (int, error) {
	f.calls.Add(1)
	if f.err != nil {
		return 0, f.err
	}
	for i := 1; i <= f.pages; i++ {
		if err := ctx.Err(); err != nil {
			return i - 1, err
		}
		if err := fn(entity.PageImage{Index: i, Format: constants.PNG, Data: []byte{byte(i)}}); err != nil {
			return i - 1, err
		}
	}
	return f.pages, nil
}

// fakeRecognizer answers "text-<page>", or the entry in byPage.
type fakeRecognizer struct {
	byPage map[int]string
	failOn int
	delay  func(page int) time.Duration
	calls  atomic.Int32
}

func (f *fakeRecognizer) Recognize(ctx context.Context, page entity.PageImage, _ string) (string, error) {
	f.calls.Add(1)
	if f.delay != nil {
		select {
		case <-time.After(f.delay(page.Index)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if page.Index == f.failOn {
		return "", fmt.Errorf("page %d: engine crashed: %w", page.Index, common.ErrRecognitionFailed)
	}
	if txt, ok := f.byPage[page.Index]; ok {
		return txt, nil
	}
	return fmt.Sprintf("text-%d", page.Index), nil
}

type fakeJournal struct {
	mu       sync.Mutex
	started  []repository.StartJob
	ocr      []repository.OCROutcome
	drafts   []json.RawMessage
	failures []string
}

func (j *fakeJournal) Start(_ context.Context, in repository.StartJob) (*entity.ExtractJob, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.started = append(j.started, in)
	return &entity.ExtractJob{ID: uuid.New(), Status: string(constants.JobStatusRunning)}, nil
}

func (j *fakeJournal) FinishOCR(_ context.Context, _ uuid.UUID, out repository.OCROutcome) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ocr = append(j.ocr, out)
	return nil
}

func (j *fakeJournal) FinishSuccess(_ context.Context, _ uuid.UUID, draft json.RawMessage) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.drafts = append(j.drafts, draft)
	return nil
}

func (j *fakeJournal) FinishFailure(_ context.Context, _ uuid.UUID, message string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.failures = append(j.failures, message)
	return nil
}

func TestExtract_ImageSkipsTextLayer(t *testing.T) {
	text := &fakeTextLayer{text: "should not be read"}
	pages := &fakeRenderer{pages: 1}
	ocr := &fakeRecognizer{byPage: map[int]string{1: "YARN NO. : PO12345\nCGST : 9\nSGST : 9"}}
	p := NewProcessor(nil, text, pages, ocr, nil)

	res, err := p.Extract(context.Background(), entity.RawDocument{Data: []byte("png"), MediaType: constants.PNG}, Options{})
	require.NoError(t, err)

	assert.Equal(t, int32(0), text.calls.Load())
	assert.Equal(t, int32(1), pages.calls.Load())
	assert.Equal(t, int32(1), ocr.calls.Load())
	assert.Equal(t, constants.MethodImageOCR, res.Text.Method)
	assert.Equal(t, "PO12345", res.Draft.PONumber)
	assert.Equal(t, entity.TaxDetails{CGST: 9, SGST: 9}, res.Draft.TaxDetails)
	assert.Equal(t, uuid.Nil, res.JobID)
}

func TestExtract_PDFWithTextLayer(t *testing.T) {
	text := &fakeTextLayer{text: "PO NO. : A-1\nNet Amount : 1,000"}
	pages := &fakeRenderer{pages: 3}
	ocr := &fakeRecognizer{}
	p := NewProcessor(nil, text, pages, ocr, nil)

	res, err := p.Extract(context.Background(), entity.RawDocument{Data: []byte("%PDF"), MediaType: constants.PDF}, Options{})
	require.NoError(t, err)

	assert.Equal(t, int32(0), pages.calls.Load())
	assert.Equal(t, int32(0), ocr.calls.Load())
	assert.Equal(t, constants.MethodPDFText, res.Text.Method)
	assert.Equal(t, 2, res.Text.Pages)
	assert.Equal(t, "A-1", res.Draft.PONumber)
	require.NotNil(t, res.Draft.TotalAmount)
	assert.Equal(t, 1000.0, *res.Draft.TotalAmount)
}

func TestRecognizeText_PDFFallsBackToOCR(t *testing.T) {
	text := &fakeTextLayer{err: fmt.Errorf("blank: %w", common.ErrNoEmbeddedText)}
	pages := &fakeRenderer{pages: 3}
	p := NewProcessor(nil, text, pages, &fakeRecognizer{}, nil)

	got, err := p.RecognizeText(context.Background(), entity.RawDocument{Data: []byte("%PDF"), MediaType: constants.PDF}, Options{Language: "eng"})
	require.NoError(t, err)
	assert.Equal(t, RecognizedText{
		Text:     "text-1\n--- page 2 ---\ntext-2\n--- page 3 ---\ntext-3",
		Method:   constants.MethodPDFOCR,
		Pages:    3,
		Language: "eng",
	}, got)
	assert.Equal(t, int32(1), text.calls.Load())
}

func TestRecognizeText_ForceOCR(t *testing.T) {
	text := &fakeTextLayer{text: "layer"}
	p := NewProcessor(nil, text, &fakeRenderer{pages: 1}, &fakeRecognizer{}, nil).
		WithDefaults(Options{ForceOCR: true})

	got, err := p.RecognizeText(context.Background(), entity.RawDocument{Data: []byte("%PDF"), MediaType: constants.PDF}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "text-1", got.Text)
	assert.Equal(t, int32(0), text.calls.Load())
}

func TestRecognizeText_TextLayerHardError(t *testing.T) {
	boom := errors.New("disk on fire")
	p := NewProcessor(nil, &fakeTextLayer{err: boom}, &fakeRenderer{pages: 1}, &fakeRecognizer{}, nil)

	_, err := p.RecognizeText(context.Background(), entity.RawDocument{Data: []byte("%PDF"), MediaType: constants.PDF}, Options{})
	assert.ErrorIs(t, err, boom)
}

func TestExtract_UnsupportedMediaType(t *testing.T) {
	text := &fakeTextLayer{}
	pages := &fakeRenderer{pages: 1}
	ocr := &fakeRecognizer{}
	jobs := &fakeJournal{}
	p := NewProcessor(nil, text, pages, ocr, nil).WithJournal(jobs)

	for _, mt := range []constants.MediaType{"gif", "", "docx"} {
		res, err := p.Extract(context.Background(), entity.RawDocument{Data: []byte("x"), MediaType: mt}, Options{})
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrUnsupportedMediaType)
		assert.Nil(t, res)
	}
	assert.Zero(t, text.calls.Load()+pages.calls.Load()+ocr.calls.Load())
	assert.Empty(t, jobs.started)
}

func TestExtract_RecognitionFailureReturnsNoDraft(t *testing.T) {
	jobs := &fakeJournal{}
	p := NewProcessor(nil, &fakeTextLayer{err: common.ErrNoEmbeddedText}, &fakeRenderer{pages: 3}, &fakeRecognizer{failOn: 2}, nil).
		WithJournal(jobs)

	res, err := p.Extract(context.Background(), entity.RawDocument{Data: []byte("%PDF"), MediaType: constants.PDF}, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrRecognitionFailed)
	assert.Nil(t, res)

	require.Len(t, jobs.started, 1)
	assert.Empty(t, jobs.ocr)
	assert.Empty(t, jobs.drafts)
	require.Len(t, jobs.failures, 1)
	assert.Contains(t, jobs.failures[0], "page 2")
}

func TestExtract_JournalsSuccess(t *testing.T) {
	jobs := &fakeJournal{}
	p := NewProcessor(nil, &fakeTextLayer{}, &fakeRenderer{pages: 1}, &fakeRecognizer{}, nil).WithJournal(jobs)

	doc := entity.RawDocument{Data: []byte("image bytes"), MediaType: constants.JPEG, Name: "scan.jpg"}
	res, err := p.Extract(context.Background(), doc, Options{Language: "tam"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, res.JobID)

	require.Len(t, jobs.started, 1)
	assert.Equal(t, ContentHash(doc.Data), jobs.started[0].ContentHash)
	assert.Equal(t, "scan.jpg", jobs.started[0].SourceName)
	require.Len(t, jobs.ocr, 1)
	assert.Equal(t, "tam", jobs.ocr[0].Language)
	require.Len(t, jobs.drafts, 1)

	want, err := json.Marshal(res.Draft)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(jobs.drafts[0]))
}

func TestRecognizeText_ConcurrentPagesKeepOrder(t *testing.T) {
	const n = 6
	ocr := &fakeRecognizer{
		// later pages finish first
		delay: func(page int) time.Duration { return time.Duration(n-page) * 5 * time.Millisecond },
	}
	p := NewProcessor(nil, &fakeTextLayer{}, &fakeRenderer{pages: n}, ocr, nil)

	got, err := p.RecognizeText(context.Background(), entity.RawDocument{Data: []byte("x"), MediaType: constants.TIFF}, Options{PageWorkers: 4})
	require.NoError(t, err)
	assert.Equal(t, n, got.Pages)
	assert.Equal(t, joinPages([]string{"text-1", "text-2", "text-3", "text-4", "text-5", "text-6"}), got.Text)
}

func TestRecognizeText_ConcurrentFailure(t *testing.T) {
	p := NewProcessor(nil, &fakeTextLayer{}, &fakeRenderer{pages: 8}, &fakeRecognizer{failOn: 3}, nil)

	_, err := p.RecognizeText(context.Background(), entity.RawDocument{Data: []byte("x"), MediaType: constants.PNG}, Options{PageWorkers: 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrRecognitionFailed)
}

func TestRecognizeText_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewProcessor(nil, &fakeTextLayer{}, &fakeRenderer{pages: 2}, &fakeRecognizer{}, nil)

	_, err := p.RecognizeText(ctx, entity.RawDocument{Data: []byte("x"), MediaType: constants.PNG}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtract_Idempotent(t *testing.T) {
	ocr := &fakeRecognizer{byPage: map[int]string{
		1: "To: Lakshmi Mills\nPO NO. : 77\nRED SH No. 1 10 200.00 2000.00",
		2: "Net Amount : 2,100.00\nConditions / remarks\nnone",
	}}
	p := NewProcessor(nil, &fakeTextLayer{err: common.ErrNoEmbeddedText}, &fakeRenderer{pages: 2}, ocr, nil)
	doc := entity.RawDocument{Data: []byte("%PDF"), MediaType: constants.PDF}

	a, err := p.Extract(context.Background(), doc, Options{})
	require.NoError(t, err)
	b, err := p.Extract(context.Background(), doc, Options{})
	require.NoError(t, err)

	ja, err := json.Marshal(a.Draft)
	require.NoError(t, err)
	jb, err := json.Marshal(b.Draft)
	require.NoError(t, err)
	assert.Equal(t, ja, jb)
	assert.Len(t, a.Draft.Items, 1)
}

func TestJoinPages(t *testing.T) {
	assert.Equal(t, "", joinPages(nil))
	assert.Equal(t, "only", joinPages([]string{"only"}))
	assert.Equal(t, "a\n--- page 2 ---\nb", joinPages([]string{"a", "b"}))
}
