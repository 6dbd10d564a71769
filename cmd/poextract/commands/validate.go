package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	parse "github.com/joseph-ayodele/po-extract/internal/pipeline/parsefields"
	"github.com/joseph-ayodele/po-extract/internal/server"
)

var validateRemote string

var errDraftInvalid = errors.New("draft is invalid")

var validateCmd = &cobra.Command{
	Use:   "validate DRAFT.json",
	Short: "Check an edited draft against the draft schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		var violations []string
		if validateRemote != "" {
			conn, err := grpc.NewClient(validateRemote, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return fmt.Errorf("dial %s: %w", validateRemote, err)
			}
			defer func() { _ = conn.Close() }()
			violations, err = server.NewClient(conn).ValidateDraft(cmd.Context(), b)
			if err != nil {
				return err
			}
		} else if violations, err = parse.DraftViolations(b); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(violations) == 0 {
			_, err := fmt.Fprintln(out, "ok")
			return err
		}
		for _, v := range violations {
			_, _ = fmt.Fprintln(out, v)
		}
		return errDraftInvalid
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateRemote, "remote", "", "validate on a poextractd at this address")
	rootCmd.AddCommand(validateCmd)
}
