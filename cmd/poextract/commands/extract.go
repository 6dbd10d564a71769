package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/joseph-ayodele/po-extract/internal/ingest"
	"github.com/joseph-ayodele/po-extract/internal/server"
)

var (
	extractOutput string
	extractRemote string
	extractText   bool
	extractFlags  pipelineFlags
)

var extractCmd = &cobra.Command{
	Use:   "extract FILE",
	Short: "Extract a purchase-order draft from one document",
	Long: `Extract reads FILE (pdf, png, jpg, bmp or tiff), recognizes its text
and prints the draft as JSON. Fields that cannot be found are left empty.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "write the draft here instead of stdout")
	extractCmd.Flags().StringVar(&extractRemote, "remote", "", "send the document to a poextractd at this address")
	extractCmd.Flags().BoolVar(&extractText, "with-text", false, "include the recognized text in the output")
	extractFlags.register(extractCmd)
	rootCmd.AddCommand(extractCmd)
}

type extractOutputDoc struct {
	JobID  string `json:"job_id,omitempty"`
	Method string `json:"method"`
	Pages  int    `json:"pages"`
	Text   string `json:"text,omitempty"`
	Draft  any    `json:"draft"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	doc, _, err := ingest.LoadFile(args[0], int64(cfg.Server.MaxUploadBytes))
	if err != nil {
		return err
	}

	var out extractOutputDoc
	if extractRemote != "" {
		conn, err := grpc.NewClient(extractRemote, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return fmt.Errorf("dial %s: %w", extractRemote, err)
		}
		defer func() { _ = conn.Close() }()

		opts := extractFlags.options()
		resp, err := server.NewClient(conn).Extract(ctx, doc.Data, server.DocumentMeta{
			MediaType: string(doc.MediaType),
			Filename:  doc.Name,
			Language:  opts.Language,
			ForceOCR:  opts.ForceOCR,
		})
		if err != nil {
			return err
		}
		out = extractOutputDoc{JobID: resp.JobID, Method: resp.Method, Pages: resp.Pages, Text: resp.Text, Draft: resp.Draft}
	} else {
		proc, _, closeDB, err := newProcessor(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		res, err := proc.Extract(ctx, doc, extractFlags.options())
		if err != nil {
			return err
		}
		out = extractOutputDoc{Method: res.Text.Method, Pages: res.Text.Pages, Text: res.Text.Text, Draft: res.Draft}
		if res.JobID != uuid.Nil {
			out.JobID = res.JobID.String()
		}
	}
	if !extractText {
		out.Text = ""
	}
	return writeJSON(cmd.OutOrStdout(), extractOutput, out)
}

// writeJSON writes v indented to path, or to w when path is empty.
func writeJSON(w io.Writer, path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if path == "" {
		_, err = w.Write(b)
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
