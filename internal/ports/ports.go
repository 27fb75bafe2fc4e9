package ports

import (
	"context"

	"github.com/odoucet/epub-translator/internal/domain"
)

// Backend is a translation-capable service, local or remote. Translate
// returns translated markup, or an error carrying a *domain.BackendError so
// the orchestrator can classify the failure.
type Backend interface {
	Spec() domain.ModelSpec
	Translate(ctx context.Context, req domain.Request) (string, error)
}

// WorkspaceStore persists per-chunk translation progress for one document.
// Implementations flush durably after every mutating call; a done entry is
// never re-translated unless the caller explicitly forces it.
type WorkspaceStore interface {
	IsDone(chapterIdx, ordinal int) bool
	Done(chapterIdx, ordinal int) (markup string, ok bool)
	MarkDone(chapterIdx, ordinal int, markup, backend string) error
	MarkFailed(chapterIdx, ordinal int, reason string) error
	Close() error
}

// RightsScanner gates the pipeline: a blocked container never reaches the
// chunker. Scan returns nil for a clear container and a
// *domain.RightsBlockedError when a protection scheme is detected.
type RightsScanner interface {
	Scan(path string) error
}

// Chunker splits chapter markup into bounded, structurally balanced chunks.
type Chunker interface {
	Split(chapter domain.Chapter) ([]domain.Chunk, error)
}
