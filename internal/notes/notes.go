// Package notes implements the in-band translator's-note protocol.
//
// Backends are instructed to wrap notes as [Translator's note: ...] inline
// in their output. Extraction replaces each delimited span with a numbered
// superscript anchor and collects the note bodies as chapter-end footnotes.
// Extraction is best-effort: an unterminated or malformed delimiter is left
// in place as ordinary text and never blocks delivery of the translated
// body.
package notes

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/odoucet/epub-translator/internal/domain"
)

// notePattern matches the note delimiter pair with either a straight or a
// typographic apostrophe, as backends emit both. The body match is lazy so
// consecutive notes do not merge.
var notePattern = regexp.MustCompile(`\[Translator['\x{2019}]s note:\s*(.*?)\]`)

// Extract scans translated markup for note delimiters. It returns the markup
// with each delimited span replaced by a footnote anchor, plus the collected
// notes numbered from start upward.
func Extract(markup string, start int) (string, []domain.TranslationNote) {
	matches := notePattern.FindAllStringSubmatchIndex(markup, -1)
	if len(matches) == 0 {
		return markup, nil
	}

	var (
		b         strings.Builder
		collected []domain.TranslationNote
		prev      int
	)
	for i, m := range matches {
		number := start + i
		collected = append(collected, domain.TranslationNote{
			Number:  number,
			Anchor:  m[0],
			Content: strings.TrimSpace(markup[m[2]:m[3]]),
		})

		b.WriteString(markup[prev:m[0]])
		ref := fmt.Sprintf("note%d", number)
		fmt.Fprintf(&b, `<sup><a href="#%s" id="ref%s">%d</a></sup>`, ref, ref, number)
		prev = m[1]
	}
	b.WriteString(markup[prev:])

	return b.String(), collected
}

// Footnotes renders collected notes as chapter-end paragraphs, each linking
// back to its inline anchor.
func Footnotes(collected []domain.TranslationNote) string {
	if len(collected) == 0 {
		return ""
	}

	var b strings.Builder
	for _, n := range collected {
		fmt.Fprintf(&b, `<p id="note%d"><sup><a href="#refnote%d">%d</a></sup> %s</p>`,
			n.Number, n.Number, n.Number, n.Content)
	}
	return b.String()
}
