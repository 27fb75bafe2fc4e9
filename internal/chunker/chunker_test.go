package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/odoucet/epub-translator/internal/domain"
)

// assertBalanced checks that every non-wrapper element opened in markup is
// closed in markup.
func assertBalanced(t *testing.T, markup string) {
	t.Helper()

	z := html.NewTokenizer(strings.NewReader(markup))
	var stack []string
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		switch tt {
		case html.StartTagToken:
			name, _ := z.TagName()
			if !voidElements[string(name)] && !structuralWrappers[string(name)] {
				stack = append(stack, string(name))
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if structuralWrappers[string(name)] {
				continue
			}
			require.NotEmpty(t, stack, "unmatched </%s> in %q", name, markup)
			require.Equal(t, stack[len(stack)-1], string(name), "interleaved tags in %q", markup)
			stack = stack[:len(stack)-1]
		}
	}
	require.Empty(t, stack, "unclosed tags %v in %q", stack, markup)
}

func join(chunks []domain.Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Markup)
	}
	return b.String()
}

func TestSplitRoundTrip(t *testing.T) {
	docs := []string{
		"",
		"<p>Hello</p>",
		"<p>Hello</p><p>World</p>",
		"<div><p>nested</p><p>blocks</p></div><p>tail</p>",
		"<?xml version=\"1.0\" encoding=\"utf-8\"?>\n<!DOCTYPE html>\n" +
			"<html><head><title>T</title><meta charset=\"utf-8\"/></head>" +
			"<body><h2>One</h2><p>First <em>rich</em> paragraph.</p>" +
			"<p>Line<br/>break and an <img src=\"a.png\"/> image.</p>" +
			"<!-- comment --><p>Last.</p></body></html>",
		"<p>unclosed paragraph",
		"<p",
		"text then <em",
		"<p>closed</p> then a truncated <stro",
	}

	for _, doc := range docs {
		for _, maxSize := range []int{5, 40, 1000} {
			chunks, err := New(maxSize, nil).Split(domain.Chapter{Index: 2, Markup: doc})
			require.NoError(t, err)
			assert.Equal(t, doc, join(chunks), "maxSize=%d", maxSize)
			for i, c := range chunks {
				assert.Equal(t, i, c.Ordinal)
				assert.Equal(t, 2, c.ChapterIndex)
			}
		}
	}
}

func TestSplitSiblingBoundaries(t *testing.T) {
	chunks, err := New(20, nil).Split(domain.Chapter{Markup: "<p>Hello</p><p>World</p>"})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "<p>Hello</p>", chunks[0].Markup)
	assert.Equal(t, "<p>World</p>", chunks[1].Markup)
	for _, c := range chunks {
		assertBalanced(t, c.Markup)
	}
}

func TestSplitSizeTieClosesChunk(t *testing.T) {
	// Both blocks are 12 runes; reaching the bound exactly still cuts.
	chunks, err := New(24, nil).Split(domain.Chapter{Markup: "<p>Hello</p><p>World</p>"})
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}

func TestSplitOversizedBlockStaysWhole(t *testing.T) {
	block := "<p>" + strings.Repeat("x", 50) + "</p>"
	chunks, err := New(20, nil).Split(domain.Chapter{Markup: block})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, block, chunks[0].Markup)
}

func TestSplitNestedBlockIsNotCut(t *testing.T) {
	markup := "<div><p>aaaa</p><p>bbbb</p></div>"
	chunks, err := New(5, nil).Split(domain.Chapter{Markup: markup})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, markup, chunks[0].Markup)
}

func TestSplitKeepsTruncatedTagBytes(t *testing.T) {
	// The tokenizer buffers a truncated tag without ever emitting it; those
	// bytes still belong to the chapter.
	chunks, err := New(100, nil).Split(domain.Chapter{Markup: "<p"})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "<p", chunks[0].Markup)

	chunks, err = New(100, nil).Split(domain.Chapter{Markup: "text then <em"})
	require.NoError(t, err)
	assert.Equal(t, "text then <em", join(chunks))
}

func TestSplitEmptyChapter(t *testing.T) {
	chunks, err := New(100, nil).Split(domain.Chapter{Markup: ""})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestRuneSizerCountsRunes(t *testing.T) {
	assert.Equal(t, 5, RuneSizer{}.Size("héllo"))
	assert.Equal(t, 0, RuneSizer{}.Size(""))
}
