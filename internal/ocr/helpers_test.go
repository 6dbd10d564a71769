package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildTextPDF returns a valid PDF with one page per entry. Each entry is
// drawn as lines of Helvetica text, one Tj per line. An empty entry makes a
// page with no text.
func buildTextPDF(pages ...string) []byte {
	var b bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, b.Len())
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	b.WriteString("%PDF-1.4\n")
	// 1 catalog, 2 pages, 3 font, then page/content pairs
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, text := range pages {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 3 0 R >> >> >>", 5+2*i))

		var s strings.Builder
		if text != "" {
			s.WriteString("BT\n/F1 12 Tf\n")
			for j, line := range strings.Split(text, "\n") {
				line = strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(line)
				fmt.Fprintf(&s, "1 0 0 1 72 %d Tm\n(%s) Tj\n", 720-20*j, line)
			}
			s.WriteString("ET")
		}
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", s.Len(), s.String()))
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return b.Bytes()
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type runCall struct {
	name  string
	stdin []byte
	args  []string
}

// fakeRunner records calls and delegates to fn.
type fakeRunner struct {
	mu    sync.Mutex
	calls []runCall
	fn    func(name string, stdin []byte, args []string) ([]byte, []byte, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, stdin []byte, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, runCall{name: name, stdin: stdin, args: args})
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return f.fn(name, stdin, args)
}

// pdftoppmWriting fakes pdftoppm -singlefile by writing a w x h PNG to the
// output prefix, which is the last argument.
func pdftoppmWriting(t *testing.T, w, h int) func(string, []byte, []string) ([]byte, []byte, error) {
	data := pngBytes(t, w, h)
	return func(_ string, _ []byte, args []string) ([]byte, []byte, error) {
		prefix := args[len(args)-1]
		return nil, nil, os.WriteFile(prefix+".png", data, 0o600)
	}
}
