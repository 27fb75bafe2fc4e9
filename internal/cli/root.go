// Package cli defines the command-line surface.
package cli

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/odoucet/epub-translator/internal/app"
	"github.com/odoucet/epub-translator/internal/config"
	"github.com/odoucet/epub-translator/internal/domain"
	"github.com/odoucet/epub-translator/internal/logging"
)

// Exit codes of the tool.
const (
	ExitOK          = 0
	ExitUsage       = 1
	ExitRightsBlock = 2
	ExitIncomplete  = 3
)

// NewRootCmd assembles the command tree. Config and logger are created once
// and shared by every subcommand.
func NewRootCmd() *cobra.Command {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)
	application := app.New(cfg, logger)

	root := &cobra.Command{
		Use:           "epub-translator",
		Short:         "Translate EPUB books through LLM backends, preserving HTML structure",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newTranslateCmd(application, logger))
	root.AddCommand(newCompareCmd(application, logger))
	root.AddCommand(newInspectCmd(application, logger))

	return root
}

// ExitCode maps a command error onto the documented exit codes.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var blocked *domain.RightsBlockedError
	if errors.As(err, &blocked) {
		return ExitRightsBlock
	}
	if errors.Is(err, domain.ErrIncomplete) {
		return ExitIncomplete
	}
	return ExitUsage
}

func logError(logger *slog.Logger, err error) {
	var blocked *domain.RightsBlockedError
	switch {
	case errors.As(err, &blocked):
		logger.Error("refusing to translate rights-protected book", "scheme", blocked.Scheme)
	case errors.Is(err, domain.ErrIncomplete):
		logger.Error("run finished with untranslated chunks; re-run with the same workspace to retry", "error", err)
	case errors.Is(err, domain.ErrWorkspaceCorrupt):
		logger.Error("workspace unreadable; fix or move it manually, it will not be reset", "error", err)
	default:
		logger.Error("command failed", "error", err)
	}
}
