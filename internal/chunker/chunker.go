// Package chunker splits chapter markup into model-sized fragments.
//
// Fragments are cut only at sibling boundaries under the structural wrapper
// elements (html, head, body), so every other element opened inside a
// fragment closes inside it. Fragments carry the exact source bytes: the
// concatenation of a chapter's chunks in ordinal order is byte-identical to
// the chapter markup. The size bound is a soft target; a single block larger
// than the bound is emitted whole rather than split mid-tag.
package chunker

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/odoucet/epub-translator/internal/domain"
	"github.com/odoucet/epub-translator/internal/ports"
)

// structuralWrappers are elements that may remain open across chunk
// boundaries; their children are the chunkable sibling blocks.
var structuralWrappers = map[string]bool{
	"html": true,
	"head": true,
	"body": true,
}

// voidElements never receive a closing tag and do not affect nesting depth.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// Splitter implements ports.Chunker with a greedy block accumulator.
type Splitter struct {
	maxSize int
	sizer   Sizer
}

var _ ports.Chunker = (*Splitter)(nil)

// New builds a splitter with the given soft size bound. A nil sizer counts
// runes.
func New(maxSize int, sizer Sizer) *Splitter {
	if sizer == nil {
		sizer = RuneSizer{}
	}
	return &Splitter{maxSize: maxSize, sizer: sizer}
}

// Split cuts the chapter markup into ordered chunks. An empty chapter yields
// zero chunks.
func (s *Splitter) Split(chapter domain.Chapter) ([]domain.Chunk, error) {
	blocks, err := topLevelBlocks(chapter.Markup)
	if err != nil {
		return nil, fmt.Errorf("split chapter %d: %w", chapter.Index, err)
	}

	var (
		chunks  []domain.Chunk
		cur     strings.Builder
		curSize int
	)

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		chunks = append(chunks, domain.Chunk{
			ChapterIndex: chapter.Index,
			Ordinal:      len(chunks),
			Markup:       cur.String(),
			Size:         curSize,
		})
		cur.Reset()
		curSize = 0
	}

	for _, block := range blocks {
		size := s.sizer.Size(block)
		// Ties at the boundary close the running chunk: smaller chunks keep
		// backend latency predictable.
		if cur.Len() > 0 && curSize+size >= s.maxSize {
			flush()
		}
		cur.WriteString(block)
		curSize += size
	}
	flush()

	return chunks, nil
}

// topLevelBlocks tokenizes markup and groups raw token bytes into runs that
// begin and end at points where only structural wrappers are open. Each run
// is a self-contained sibling block.
func topLevelBlocks(markup string) ([]string, error) {
	if markup == "" {
		return nil, nil
	}

	z := html.NewTokenizer(strings.NewReader(markup))

	var (
		blocks   []string
		cur      strings.Builder
		stack    []string
		consumed int
	)

	atBoundary := func() bool {
		for _, name := range stack {
			if !structuralWrappers[name] {
				return false
			}
		}
		return true
	}

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}

		raw := string(z.Raw())
		consumed += len(raw)

		switch tt {
		case html.StartTagToken:
			name, _ := z.TagName()
			if !voidElements[string(name)] {
				stack = append(stack, string(name))
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			// Pop to the nearest matching open tag; unmatched closers are
			// tolerated the way browsers tolerate them.
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i] == string(name) {
					stack = stack[:i]
					break
				}
			}
		}

		cur.WriteString(raw)

		if atBoundary() && cur.Len() > 0 {
			blocks = append(blocks, cur.String())
			cur.Reset()
		}
	}

	// The tokenizer stops on a truncated tag without emitting the buffered
	// bytes through Raw; reclaim them straight from the input so the chapter
	// loses nothing.
	if consumed < len(markup) {
		cur.WriteString(markup[consumed:])
	}

	// Trailing bytes that never reached a boundary (e.g. an unclosed
	// element) still belong to the chapter.
	if cur.Len() > 0 {
		blocks = append(blocks, cur.String())
	}

	return blocks, nil
}
