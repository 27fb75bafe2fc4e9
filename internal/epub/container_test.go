package epub

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContainerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const testOPF = `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="id">
  <manifest>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="css" href="style.css" media-type="text/css"/>
  </manifest>
  <spine>
    <itemref idref="nav"/>
    <itemref idref="ch1"/>
  </spine>
</package>`

func chapterDoc(words int) string {
	return "<html><body><p>" + strings.TrimSpace(strings.Repeat("word ", words)) + "</p></body></html>"
}

func writeBook(t *testing.T, files map[string]string) string {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "book.epub")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func testBookFiles() map[string]string {
	return map[string]string{
		"mimetype":               epubMimetype,
		"META-INF/container.xml": testContainerXML,
		"OEBPS/content.opf":      testOPF,
		"OEBPS/nav.xhtml":        "<html><body><p>contents</p></body></html>",
		"OEBPS/ch1.xhtml":        chapterDoc(10),
		"OEBPS/style.css":        "p { margin: 0; }",
	}
}

func TestLoadFiltersShortSpineDocuments(t *testing.T) {
	path := writeBook(t, testBookFiles())

	doc, err := Load(path, 5)
	require.NoError(t, err)

	assert.Len(t, doc.Key, 16, "key is the truncated content hash")
	assert.Equal(t, path, doc.Path)

	// nav.xhtml falls below the word bar; style.css is not a spine document.
	require.Len(t, doc.Chapters, 1)
	assert.Equal(t, 0, doc.Chapters[0].Index)
	assert.Equal(t, "OEBPS/ch1.xhtml", doc.Chapters[0].Href)
	assert.Equal(t, chapterDoc(10), doc.Chapters[0].Markup)
}

func TestLoadKeepsSpineOrderWithoutFilter(t *testing.T) {
	doc, err := Load(writeBook(t, testBookFiles()), 0)
	require.NoError(t, err)

	require.Len(t, doc.Chapters, 2)
	assert.Equal(t, "OEBPS/nav.xhtml", doc.Chapters[0].Href)
	assert.Equal(t, "OEBPS/ch1.xhtml", doc.Chapters[1].Href)
}

func TestLoadKeyTracksContent(t *testing.T) {
	a, err := Load(writeBook(t, testBookFiles()), 0)
	require.NoError(t, err)

	files := testBookFiles()
	files["OEBPS/ch1.xhtml"] = chapterDoc(11)
	b, err := Load(writeBook(t, files), 0)
	require.NoError(t, err)

	assert.NotEqual(t, a.Key, b.Key)
}

func TestLoadRejectsBrokenContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.epub")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))
	_, err := Load(path, 0)
	require.Error(t, err)

	_, err = Load(writeBook(t, map[string]string{"mimetype": epubMimetype}), 0)
	require.ErrorContains(t, err, "missing META-INF/container.xml")
}

func TestWriteTranslated(t *testing.T) {
	src := writeBook(t, testBookFiles())
	out := filepath.Join(t.TempDir(), "book.fr.epub")
	translated := "<html><body><p>mot mot mot</p></body></html>"

	err := WriteTranslated(src, out, map[string]string{"OEBPS/ch1.xhtml": translated})
	require.NoError(t, err)

	zr, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer zr.Close()

	// The format requires mimetype first and uncompressed.
	require.NotEmpty(t, zr.File)
	assert.Equal(t, "mimetype", zr.File[0].Name)
	assert.Equal(t, zip.Store, zr.File[0].Method)

	read := func(name string) string {
		f := findFile(&zr.Reader, name)
		require.NotNil(t, f, "missing entry %s", name)
		data, err := readAll(f)
		require.NoError(t, err)
		return string(data)
	}
	assert.Equal(t, epubMimetype, read("mimetype"))
	assert.Equal(t, translated, read("OEBPS/ch1.xhtml"))
	assert.Equal(t, "p { margin: 0; }", read("OEBPS/style.css"))
	assert.Equal(t, testContainerXML, read("META-INF/container.xml"))
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "books/moby.fr.epub", OutputPath("books/moby.epub", "French"))
	assert.Equal(t, "moby.de.epub", OutputPath("moby.epub", "german"))
	assert.Equal(t, "moby.eo.epub", OutputPath("moby.epub", "eo"))
}

func TestText(t *testing.T) {
	assert.Equal(t, "Hello world", Text("<p>Hello <em>world</em></p>"))
	assert.Empty(t, Text(""))
}
