package workspace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odoucet/epub-translator/internal/domain"
)

func TestOpenCreatesAndPersists(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, "0011aabb")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "0011aabb.workspace.json"), s.Path())

	require.NoError(t, s.MarkDone(0, 0, "<p>bonjour</p>", "ollama/mistral"))
	require.NoError(t, s.MarkFailed(0, 1, "all backends exhausted"))
	require.NoError(t, s.Close())

	// A fresh open over the same key resumes from the file.
	s2, err := Open(dir, "0011aabb")
	require.NoError(t, err)
	defer s2.Close()

	assert.True(t, s2.IsDone(0, 0))
	markup, ok := s2.Done(0, 0)
	require.True(t, ok)
	assert.Equal(t, "<p>bonjour</p>", markup)

	assert.False(t, s2.IsDone(0, 1))
	assert.Equal(t, []int{1}, s2.FailedChunks(0))
}

func TestOpenLockConflict(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir, "deadbeef")
	require.NoError(t, err)

	_, err = Open(dir, "deadbeef")
	require.ErrorIs(t, err, domain.ErrWorkspaceLocked)

	require.NoError(t, s1.Close())

	s3, err := Open(dir, "deadbeef")
	require.NoError(t, err)
	s3.Close()
}

func TestOpenCorruptFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cafe0123.workspace.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Open(dir, "cafe0123")
	require.ErrorIs(t, err, domain.ErrWorkspaceCorrupt)

	// The lock must have been released so a fixed file can be reopened.
	require.NoError(t, os.WriteFile(path, []byte(`{"document":"cafe0123","version":1,"chapters":{}}`), 0o644))
	s, err := Open(dir, "cafe0123")
	require.NoError(t, err)
	s.Close()
}

func TestOpenDocumentKeyMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aaaa1111.workspace.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"document":"bbbb2222","version":1,"chapters":{}}`), 0o644))

	_, err := Open(dir, "aaaa1111")
	require.ErrorIs(t, err, domain.ErrWorkspaceCorrupt)
}

func TestDoneIsNeverRewound(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "feed0001")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.MarkDone(1, 4, "<p>done</p>", "ollama/mistral"))
	require.NoError(t, s.MarkFailed(1, 4, "late failure"))

	assert.True(t, s.IsDone(1, 4))
	markup, ok := s.Done(1, 4)
	require.True(t, ok)
	assert.Equal(t, "<p>done</p>", markup)
	assert.Empty(t, s.FailedChunks(1))
}

func TestUnknownFieldsSurviveRewrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "beef4242.workspace.json")
	seed := `{
		"document": "beef4242",
		"version": 1,
		"review": {"assignee": "sam"},
		"chapters": {
			"0": [
				{"ordinal": 0, "status": "done", "markup": "<p>old</p>", "glossary": ["madeleine"]}
			]
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	s, err := Open(dir, "beef4242")
	require.NoError(t, err)

	markup, ok := s.Done(0, 0)
	require.True(t, ok)
	assert.Equal(t, "<p>old</p>", markup)

	require.NoError(t, s.MarkDone(0, 1, "<p>new</p>", "openai/gpt-4o"))
	require.NoError(t, s.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var rewritten map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &rewritten))
	assert.JSONEq(t, `{"assignee":"sam"}`, string(rewritten["review"]))
	assert.Contains(t, string(raw), "glossary")
	assert.Contains(t, string(raw), "madeleine")

	// Markup is stored readable, not as \u003c escape sequences.
	assert.Contains(t, string(raw), "<p>new</p>")
	assert.Contains(t, string(raw), "<p>old</p>")
	assert.NotContains(t, string(raw), `\u003c`)
}

func TestFlushLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "0abc0abc")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.MarkDone(0, 0, "<p>x y z</p>", "ollama/mistral"))

	_, err = os.Stat(s.Path())
	require.NoError(t, err)
	_, err = os.Stat(s.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
