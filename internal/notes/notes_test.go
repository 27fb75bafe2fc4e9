package notes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odoucet/epub-translator/internal/domain"
)

func TestExtractSingleNote(t *testing.T) {
	in := "<p>He ate a madeleine [Translator's note: a small sponge cake] at dusk.</p>"

	processed, collected := Extract(in, 1)

	require.Len(t, collected, 1)
	assert.Equal(t, 1, collected[0].Number)
	assert.Equal(t, "a small sponge cake", collected[0].Content)
	assert.Equal(t, strings.Index(in, "[Translator"), collected[0].Anchor)
	assert.Equal(t,
		`<p>He ate a madeleine <sup><a href="#note1" id="refnote1">1</a></sup> at dusk.</p>`,
		processed)
}

func TestExtractNumbersFromStart(t *testing.T) {
	in := "<p>One[Translator's note: first] and two[Translator's note: second].</p>"

	processed, collected := Extract(in, 3)

	require.Len(t, collected, 2)
	assert.Equal(t, 3, collected[0].Number)
	assert.Equal(t, "first", collected[0].Content)
	assert.Equal(t, 4, collected[1].Number)
	assert.Equal(t, "second", collected[1].Content)
	assert.Contains(t, processed, `id="refnote3"`)
	assert.Contains(t, processed, `id="refnote4"`)
	assert.NotContains(t, processed, "Translator's note")
}

func TestExtractTypographicApostrophe(t *testing.T) {
	_, collected := Extract("<p>x[Translator’s note: kept as is]</p>", 1)
	require.Len(t, collected, 1)
	assert.Equal(t, "kept as is", collected[0].Content)
}

func TestExtractDuplicateNotesAnchorSeparately(t *testing.T) {
	in := "<p>a[Translator's note: same]b[Translator's note: same]c</p>"

	_, collected := Extract(in, 1)

	require.Len(t, collected, 2)
	assert.Equal(t, "same", collected[0].Content)
	assert.Equal(t, "same", collected[1].Content)
	assert.Equal(t, strings.Index(in, "["), collected[0].Anchor)
	assert.Greater(t, collected[1].Anchor, collected[0].Anchor)
	assert.Equal(t, strings.LastIndex(in, "["), collected[1].Anchor)
}

func TestExtractMalformedDelimiterPassesThrough(t *testing.T) {
	in := "<p>text [Translator's note: never closed</p>"

	processed, collected := Extract(in, 1)

	assert.Empty(t, collected)
	assert.Equal(t, in, processed)
}

func TestFootnotes(t *testing.T) {
	got := Footnotes([]domain.TranslationNote{
		{Number: 3, Content: "first"},
		{Number: 4, Content: "second"},
	})
	assert.Equal(t,
		`<p id="note3"><sup><a href="#refnote3">3</a></sup> first</p>`+
			`<p id="note4"><sup><a href="#refnote4">4</a></sup> second</p>`,
		got)
}

func TestFootnotesEmpty(t *testing.T) {
	assert.Empty(t, Footnotes(nil))
}
