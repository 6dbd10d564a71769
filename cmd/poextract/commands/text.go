package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/po-extract/internal/ingest"
)

var textFlags pipelineFlags

var textCmd = &cobra.Command{
	Use:   "text FILE",
	Short: "Print the recognized text of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, _, err := ingest.LoadFile(args[0], int64(cfg.Server.MaxUploadBytes))
		if err != nil {
			return err
		}
		proc, _, closeDB, err := newProcessor(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()

		text, err := proc.RecognizeText(cmd.Context(), doc, textFlags.options())
		if err != nil {
			return err
		}
		logger.Info("text.ok", "method", text.Method, "pages", text.Pages, "chars", len(text.Text))
		_, err = fmt.Fprintln(cmd.OutOrStdout(), text.Text)
		return err
	},
}

func init() {
	textFlags.register(textCmd)
	rootCmd.AddCommand(textCmd)
}
