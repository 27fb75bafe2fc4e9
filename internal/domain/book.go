package domain

import "time"

// Document is an immutable view of one EPUB for the duration of a run.
// Key is derived from the container content hash and names the workspace.
type Document struct {
	Key      string
	Path     string
	Chapters []Chapter
}

// Chapter is one spine document of the book. Markup is the raw XHTML as
// stored in the container; translation never mutates it in place.
type Chapter struct {
	Index      int
	Href       string
	Markup     string
	SourceLang string
	TargetLang string
}

// Chunk is a structurally balanced fragment of a chapter's markup.
// Chunks of a chapter concatenate, in ordinal order, to the exact bytes of
// the chapter markup they were split from.
type Chunk struct {
	ChapterIndex int
	Ordinal      int
	Markup       string
	Size         int
}

// ModelSpec identifies one translation backend: where it lives and which
// model it serves.
type ModelSpec struct {
	Kind     string // "ollama" or "openai"
	Endpoint string
	Model    string
}

// String renders the spec the way it is recorded in workspaces and logs.
func (m ModelSpec) String() string {
	if m.Kind == "" {
		return m.Model
	}
	return m.Kind + "/" + m.Model
}

// AttemptStatus enumerates the outcome of a single backend call.
type AttemptStatus string

const (
	AttemptPending AttemptStatus = "pending"
	AttemptSuccess AttemptStatus = "success"
	AttemptFailed  AttemptStatus = "failed"
	AttemptTimeout AttemptStatus = "timeout"
)

// TranslationAttempt records one request to one backend for one chunk.
type TranslationAttempt struct {
	Backend ModelSpec
	Status  AttemptStatus
	Output  string
	Err     error
	Elapsed time.Duration
}

// TranslationNote is a translator's footnote emitted in-band by a backend.
// Anchor is the byte offset of the note inside the chunk output it came from;
// numbering is assigned at reassembly, sequentially per chapter.
type TranslationNote struct {
	Number  int
	Anchor  int
	Content string
}

// Request carries everything a backend needs to translate one chunk.
type Request struct {
	Markup       string
	SourceLang   string
	TargetLang   string
	SystemPrompt string
}
