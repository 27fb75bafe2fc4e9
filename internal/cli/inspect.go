package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/odoucet/epub-translator/internal/app"
)

func newInspectCmd(application *app.Application, logger *slog.Logger) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Check a book's rights-protection state without translating",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := application.Inspect(file); err != nil {
				logError(logger, err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to the .epub file")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
