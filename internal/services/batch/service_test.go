package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/po-extract/internal/async"
	"github.com/joseph-ayodele/po-extract/internal/entity"
	"github.com/joseph-ayodele/po-extract/internal/ingest"
	processor "github.com/joseph-ayodele/po-extract/internal/pipeline"
	parse "github.com/joseph-ayodele/po-extract/internal/pipeline/parsefields"
)

// fakeExtractor parses the file bytes as if they were recognized text.
type fakeExtractor struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (f *fakeExtractor) Extract(_ context.Context, doc entity.RawDocument, _ processor.Options) (*processor.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, doc.Name)
	f.mu.Unlock()
	if f.fail[doc.Name] {
		return nil, errors.New("recognition failed on page 1")
	}
	return &processor.Result{
		JobID: uuid.New(),
		Text:  processor.RecognizedText{Text: string(doc.Data), Method: "image-ocr", Pages: 1},
		Draft: parse.ExtractFields(string(doc.Data)),
	}, nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestRun(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.png"), "PO NO. : A-1\nNet Amount : 100")
	writeFile(t, filepath.Join(root, "b.png"), "PO NO. : A-1\nNet Amount : 100") // duplicate of a.png
	writeFile(t, filepath.Join(root, "c.jpg"), "unreadable")

	ex := &fakeExtractor{fail: map[string]bool{"c.jpg": true}}
	svc := NewService(ex, nil, async.WithWorkers(2))

	report, err := svc.Run(context.Background(), Request{Root: root})
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 3)

	assert.ElementsMatch(t, []string{"a.png", "c.jpg"}, ex.calls)
	assert.Equal(t, 1, report.Succeeded())

	a := report.Outcomes[0]
	require.NoError(t, a.Err)
	assert.Equal(t, "A-1", a.Result.Draft.PONumber)
	assert.True(t, report.Outcomes[1].Skipped)
	assert.Error(t, report.Outcomes[2].Err)

	rows := report.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "A-1", rows[0].Draft.PONumber)
	assert.NotEmpty(t, rows[0].JobID)
	assert.Equal(t, "recognition failed on page 1", rows[1].Error)
	assert.Nil(t, rows[1].Draft)
}

func TestRun_ForceProcessesDuplicates(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"), "same")
	writeFile(t, filepath.Join(root, "b.pdf"), "same")

	ex := &fakeExtractor{}
	report, err := NewService(ex, nil).Run(context.Background(), Request{Root: root, Force: true})
	require.NoError(t, err)
	assert.Len(t, ex.calls, 2)
	assert.Equal(t, 2, report.Succeeded())
}

func TestRun_EmptyRoot(t *testing.T) {
	_, err := NewService(&fakeExtractor{}, nil).Run(context.Background(), Request{Root: ""})
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Outcome, 4)
	done := make(chan error, 1)
	go func() {
		done <- NewService(&fakeExtractor{}, nil).Watch(ctx,
			ingest.WatchConfig{Roots: []string{root}, Debounce: 20 * time.Millisecond},
			processor.Options{},
			func(o Outcome) { got <- o },
		)
	}()

	// give the watcher a moment to register the root
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(root, "new.png"), "PO NO. : W-7")

	select {
	case o := <-got:
		require.NoError(t, o.Err)
		assert.Equal(t, "W-7", o.Result.Draft.PONumber)
	case <-time.After(3 * time.Second):
		t.Fatal("no outcome for new file")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop")
	}
}
