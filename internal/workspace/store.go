// Package workspace persists per-chunk translation progress as a JSON file
// keyed by document. The file is rewritten atomically after every chunk
// outcome, so an interruption loses at most the in-flight attempt. Unknown
// JSON fields found in an existing file are carried through rewrites
// untouched, keeping older in-progress workspaces usable by newer builds.
package workspace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/odoucet/epub-translator/internal/domain"
	"github.com/odoucet/epub-translator/internal/ports"
)

// Chunk status values as persisted.
const (
	StatusPending = "pending"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Store is the single writer for one document's progress file.
type Store struct {
	path     string
	lockPath string
	record   *record
}

var _ ports.WorkspaceStore = (*Store)(nil)

// Open loads (or creates) the workspace for a document key and takes the
// writer lock. A second concurrent open for the same key fails with
// domain.ErrWorkspaceLocked. An unreadable or inconsistent file fails with
// domain.ErrWorkspaceCorrupt; it is never silently reset.
func Open(dir, documentKey string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("workspace dir: %w", err)
	}

	s := &Store{
		path:     filepath.Join(dir, documentKey+".workspace.json"),
		lockPath: filepath.Join(dir, documentKey+".workspace.lock"),
	}

	lock, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrWorkspaceLocked, s.lockPath)
		}
		return nil, fmt.Errorf("workspace lock: %w", err)
	}
	lock.Close()

	raw, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.record = newRecord(documentKey)
		return s, nil
	case err != nil:
		s.unlock()
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrWorkspaceCorrupt, s.path, err)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		s.unlock()
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrWorkspaceCorrupt, s.path, err)
	}
	if rec.Document != "" && rec.Document != documentKey {
		s.unlock()
		return nil, fmt.Errorf("%w: %s belongs to document %s, not %s",
			domain.ErrWorkspaceCorrupt, s.path, rec.Document, documentKey)
	}
	rec.Document = documentKey
	s.record = &rec

	return s, nil
}

// Path returns the progress file location.
func (s *Store) Path() string { return s.path }

// IsDone reports whether a chunk has a committed translation.
func (s *Store) IsDone(chapterIdx, ordinal int) bool {
	e := s.record.find(chapterIdx, ordinal)
	return e != nil && e.Status == StatusDone
}

// Done returns the committed markup for a chunk, if any.
func (s *Store) Done(chapterIdx, ordinal int) (string, bool) {
	e := s.record.find(chapterIdx, ordinal)
	if e == nil || e.Status != StatusDone {
		return "", false
	}
	return e.Markup, true
}

// MarkDone commits a chunk's translated markup and flushes durably.
func (s *Store) MarkDone(chapterIdx, ordinal int, markup, backend string) error {
	e := s.record.ensure(chapterIdx, ordinal)
	e.Status = StatusDone
	e.Markup = markup
	e.Backend = backend
	e.Reason = ""
	e.Timestamp = time.Now().UTC().Format(time.RFC3339)
	return s.flush()
}

// MarkFailed records chunk exhaustion and flushes durably. A previously done
// chunk is never rewound to failed.
func (s *Store) MarkFailed(chapterIdx, ordinal int, reason string) error {
	e := s.record.ensure(chapterIdx, ordinal)
	if e.Status == StatusDone {
		return nil
	}
	e.Status = StatusFailed
	e.Markup = ""
	e.Reason = reason
	e.Timestamp = time.Now().UTC().Format(time.RFC3339)
	return s.flush()
}

// FailedChunks lists the ordinals recorded as failed for a chapter.
func (s *Store) FailedChunks(chapterIdx int) []int {
	var out []int
	for _, e := range s.record.chapter(chapterIdx) {
		if e.Status == StatusFailed {
			out = append(out, e.Ordinal)
		}
	}
	sort.Ints(out)
	return out
}

// Close releases the writer lock. The progress file stays behind for resume.
func (s *Store) Close() error {
	s.unlock()
	return nil
}

func (s *Store) unlock() {
	_ = os.Remove(s.lockPath)
}

// flush rewrites the whole file through a temp sibling plus rename, so a
// crash mid-write leaves the previous state intact. Markup is written
// unescaped; the file is meant to be read by people.
func (s *Store) flush() error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.record); err != nil {
		return fmt.Errorf("encode workspace: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write workspace: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace workspace: %w", err)
	}
	return nil
}

// marshalPlain encodes without HTML escaping. json.Marshal would render every
// tag in chunk markup as \u003c escape sequences, and the progress file is
// meant to be read by people.
func marshalPlain(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// record is the persisted document layout. Chapters are keyed by their
// stringified index so the JSON shape stays an object, which is what keeps
// the format open to future per-chapter fields.
type record struct {
	Document string
	Version  int
	Chapters map[string][]*entry

	extra map[string]json.RawMessage
}

func newRecord(documentKey string) *record {
	return &record{
		Document: documentKey,
		Version:  1,
		Chapters: map[string][]*entry{},
	}
}

func (r *record) chapter(chapterIdx int) []*entry {
	return r.Chapters[strconv.Itoa(chapterIdx)]
}

func (r *record) find(chapterIdx, ordinal int) *entry {
	for _, e := range r.chapter(chapterIdx) {
		if e.Ordinal == ordinal {
			return e
		}
	}
	return nil
}

func (r *record) ensure(chapterIdx, ordinal int) *entry {
	if e := r.find(chapterIdx, ordinal); e != nil {
		return e
	}
	if r.Chapters == nil {
		r.Chapters = map[string][]*entry{}
	}
	key := strconv.Itoa(chapterIdx)
	e := &entry{Ordinal: ordinal, Status: StatusPending}
	r.Chapters[key] = append(r.Chapters[key], e)
	sort.Slice(r.Chapters[key], func(i, j int) bool {
		return r.Chapters[key][i].Ordinal < r.Chapters[key][j].Ordinal
	})
	return e
}

func (r *record) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	take := func(key string, v any) error {
		raw, ok := fields[key]
		if !ok {
			return nil
		}
		delete(fields, key)
		return json.Unmarshal(raw, v)
	}

	if err := take("document", &r.Document); err != nil {
		return err
	}
	if err := take("version", &r.Version); err != nil {
		return err
	}
	if err := take("chapters", &r.Chapters); err != nil {
		return err
	}
	r.extra = fields
	return nil
}

func (r *record) MarshalJSON() ([]byte, error) {
	fields := map[string]json.RawMessage{}
	for k, v := range r.extra {
		fields[k] = v
	}

	put := func(key string, v any) error {
		raw, err := marshalPlain(v)
		if err != nil {
			return err
		}
		fields[key] = raw
		return nil
	}

	if err := put("document", r.Document); err != nil {
		return nil, err
	}
	if err := put("version", r.Version); err != nil {
		return nil, err
	}
	if err := put("chapters", r.Chapters); err != nil {
		return nil, err
	}
	return marshalPlain(fields)
}

// entry is one per-chunk progress row.
type entry struct {
	Ordinal   int
	Status    string
	Markup    string
	Backend   string
	Reason    string
	Timestamp string

	extra map[string]json.RawMessage
}

func (e *entry) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	take := func(key string, v any) error {
		raw, ok := fields[key]
		if !ok {
			return nil
		}
		delete(fields, key)
		return json.Unmarshal(raw, v)
	}

	if err := take("ordinal", &e.Ordinal); err != nil {
		return err
	}
	if err := take("status", &e.Status); err != nil {
		return err
	}
	if err := take("markup", &e.Markup); err != nil {
		return err
	}
	if err := take("backend", &e.Backend); err != nil {
		return err
	}
	if err := take("reason", &e.Reason); err != nil {
		return err
	}
	if err := take("timestamp", &e.Timestamp); err != nil {
		return err
	}
	e.extra = fields
	return nil
}

func (e *entry) MarshalJSON() ([]byte, error) {
	fields := map[string]json.RawMessage{}
	for k, v := range e.extra {
		fields[k] = v
	}

	put := func(key string, v any) error {
		raw, err := marshalPlain(v)
		if err != nil {
			return err
		}
		fields[key] = raw
		return nil
	}

	if err := put("ordinal", e.Ordinal); err != nil {
		return nil, err
	}
	if err := put("status", e.Status); err != nil {
		return nil, err
	}
	if e.Markup != "" {
		if err := put("markup", e.Markup); err != nil {
			return nil, err
		}
	}
	if e.Backend != "" {
		if err := put("backend", e.Backend); err != nil {
			return nil, err
		}
	}
	if e.Reason != "" {
		if err := put("reason", e.Reason); err != nil {
			return nil, err
		}
	}
	if e.Timestamp != "" {
		if err := put("timestamp", e.Timestamp); err != nil {
			return nil, err
		}
	}
	return marshalPlain(fields)
}
