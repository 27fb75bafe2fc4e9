package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/odoucet/epub-translator/internal/domain"
	"github.com/odoucet/epub-translator/internal/notes"
	"github.com/odoucet/epub-translator/internal/ports"
)

// ChapterState tracks a chapter through one run. The translating state
// re-enters itself across process restarts: a resumed run picks up at the
// first chunk the workspace does not record as done.
type ChapterState string

const (
	StatePending      ChapterState = "pending"
	StateChunking     ChapterState = "chunking"
	StateTranslating  ChapterState = "translating"
	StateReassembling ChapterState = "reassembling"
	StateComplete     ChapterState = "complete"
	StateIncomplete   ChapterState = "incomplete"
)

// ChapterReport is the per-chapter slice of the run summary.
type ChapterReport struct {
	Index   int
	Href    string
	State   ChapterState
	Outcome ChapterOutcome
}

// RunSummary is what a run reports back to the user.
type RunSummary struct {
	Chapters []ChapterReport
	// Reassembled holds final chapter markup for completed chapters, keyed
	// by href, ready for container injection.
	Reassembled map[string]string
}

// Complete reports whether every translated chapter reached the complete
// state.
func (s *RunSummary) Complete() bool {
	for _, ch := range s.Chapters {
		if ch.State != StateComplete {
			return false
		}
	}
	return true
}

// Controller composes the chunker, orchestrator, and note channel into a
// full-book or single-chapter run over a document that already passed the
// rights gate.
type Controller struct {
	chunker ports.Chunker
	orch    *Orchestrator
	store   ports.WorkspaceStore
	logger  *slog.Logger
}

// NewController wires the pipeline controller.
func NewController(chunker ports.Chunker, orch *Orchestrator, store ports.WorkspaceStore, logger *slog.Logger) *Controller {
	return &Controller{chunker: chunker, orch: orch, store: store, logger: logger}
}

// Run translates the document's chapters. When chapter is non-nil only that
// chapter index is processed and the rest of the workspace is left
// untouched. The summary is returned even when some chapters stay
// incomplete; the caller decides whether that is an error.
func (c *Controller) Run(ctx context.Context, doc *domain.Document, base domain.Request, chapter *int) (*RunSummary, error) {
	summary := &RunSummary{Reassembled: map[string]string{}}

	for i := range doc.Chapters {
		if chapter != nil && doc.Chapters[i].Index != *chapter {
			continue
		}
		report, markup, err := c.runChapter(ctx, doc.Chapters[i], base)
		summary.Chapters = append(summary.Chapters, report)
		if err != nil {
			return summary, err
		}
		if report.State == StateComplete && markup != "" {
			summary.Reassembled[doc.Chapters[i].Href] = markup
		}
	}

	if chapter != nil && len(summary.Chapters) == 0 {
		return summary, fmt.Errorf("chapter %d not found (document has %d translatable chapters)", *chapter, len(doc.Chapters))
	}

	return summary, nil
}

func (c *Controller) runChapter(ctx context.Context, ch domain.Chapter, base domain.Request) (ChapterReport, string, error) {
	report := ChapterReport{Index: ch.Index, Href: ch.Href, State: StatePending}

	report.State = StateChunking
	chunks, err := c.chunker.Split(ch)
	if err != nil {
		return report, "", fmt.Errorf("chapter %d: %w", ch.Index, err)
	}
	if len(chunks) == 0 {
		report.State = StateComplete
		return report, "", nil
	}

	c.logger.Info("chapter chunked", "chapter", ch.Index, "href", ch.Href, "chunks", len(chunks))

	report.State = StateTranslating
	outcome, err := c.orch.TranslateChapter(ctx, chunks, base)
	report.Outcome = outcome
	if err != nil {
		return report, "", fmt.Errorf("chapter %d: %w", ch.Index, err)
	}

	if !outcome.Complete() {
		report.State = StateIncomplete
		c.logger.Warn("chapter incomplete",
			"chapter", ch.Index, "done", outcome.Done+outcome.Skipped, "failed", outcome.Failed)
		return report, "", nil
	}

	report.State = StateReassembling
	markup, err := c.reassemble(ch, chunks)
	if err != nil {
		return report, "", err
	}

	report.State = StateComplete
	c.logger.Info("chapter complete", "chapter", ch.Index,
		"translated", outcome.Done, "resumed", outcome.Skipped)
	return report, markup, nil
}

// reassemble concatenates the committed chunk markups in ordinal order,
// relocates translator's notes to the chapter end, and renumbers them
// sequentially.
func (c *Controller) reassemble(ch domain.Chapter, chunks []domain.Chunk) (string, error) {
	var (
		body      strings.Builder
		collected []domain.TranslationNote
	)

	for _, chunk := range chunks {
		markup, ok := c.store.Done(ch.Index, chunk.Ordinal)
		if !ok {
			return "", fmt.Errorf("reassemble chapter %d: chunk %d not committed", ch.Index, chunk.Ordinal)
		}
		processed, found := notes.Extract(markup, len(collected)+1)
		collected = append(collected, found...)
		body.WriteString(processed)
	}

	return appendFootnotes(body.String(), notes.Footnotes(collected)), nil
}

// appendFootnotes places the footnote block at the chapter end, inside the
// body element when one exists.
func appendFootnotes(markup, footnotes string) string {
	if footnotes == "" {
		return markup
	}
	lower := strings.ToLower(markup)
	if i := strings.LastIndex(lower, "</body>"); i >= 0 {
		return markup[:i] + footnotes + markup[i:]
	}
	return markup + footnotes
}

// FailedChapters lists chapter indexes that left failed chunks behind,
// extracted from the summary for exit-code mapping.
func (s *RunSummary) FailedChapters() []int {
	var out []int
	for _, ch := range s.Chapters {
		if ch.State == StateIncomplete {
			out = append(out, ch.Index)
		}
	}
	return out
}

// Err converts the summary into the run-level error contract: nil when
// everything completed, ErrIncomplete otherwise.
func (s *RunSummary) Err() error {
	if s.Complete() {
		return nil
	}
	return fmt.Errorf("%w: chapters %v left with failed chunks", domain.ErrIncomplete, s.FailedChapters())
}
