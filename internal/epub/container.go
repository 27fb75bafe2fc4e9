// Package epub is a thin read/write wrapper over the EPUB zip container.
// It resolves the OPF through META-INF/container.xml, lists spine documents
// as chapters, and writes a translated copy of the archive. Rights checks
// live in the rights package; this package never inspects protection state.
package epub

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/odoucet/epub-translator/internal/domain"
)

const (
	containerFilePath = "META-INF/container.xml"
	mimetypeFilePath  = "mimetype"
	epubMimetype      = "application/epub+zip"
)

type xmlContainer struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type xmlPackage struct {
	Manifest []xmlManifestItem `xml:"manifest>item"`
	Spine    []xmlSpineItem    `xml:"spine>itemref"`
}

type xmlManifestItem struct {
	ID        string `xml:"id,attr"`
	Href      string `xml:"href,attr"`
	MediaType string `xml:"media-type,attr"`
}

type xmlSpineItem struct {
	IDRef string `xml:"idref,attr"`
}

// Load opens the container at path and returns its document. Chapters are
// the spine XHTML items, in spine order, whose extracted text holds at least
// minWords words; front matter and short navigation pages fall below that
// bar and are left untranslated. The document key is derived from the
// container content hash.
func Load(path string, minWords int) (*domain.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("epub: read %s: %w", path, err)
	}

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("epub: open container %s: %w", path, err)
	}

	hrefs, err := spineDocuments(zr)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(raw)
	doc := &domain.Document{
		Key:  hex.EncodeToString(sum[:8]),
		Path: path,
	}

	idx := 0
	for _, href := range hrefs {
		f := findFile(zr, href)
		if f == nil {
			continue
		}
		data, err := readAll(f)
		if err != nil {
			return nil, fmt.Errorf("epub: read chapter %s: %w", href, err)
		}
		markup := string(stripBOM(data))
		if wordCount(markup) < minWords {
			continue
		}
		doc.Chapters = append(doc.Chapters, domain.Chapter{
			Index:  idx,
			Href:   href,
			Markup: markup,
		})
		idx++
	}

	return doc, nil
}

// spineDocuments resolves the OPF and returns spine document hrefs relative
// to the zip root, in reading order.
func spineDocuments(zr *zip.Reader) ([]string, error) {
	cf := findFile(zr, containerFilePath)
	if cf == nil {
		return nil, fmt.Errorf("epub: missing %s", containerFilePath)
	}
	data, err := readAll(cf)
	if err != nil {
		return nil, fmt.Errorf("epub: read container descriptor: %w", err)
	}

	var cont xmlContainer
	if err := xml.Unmarshal(data, &cont); err != nil {
		return nil, fmt.Errorf("epub: parse container descriptor: %w", err)
	}
	if len(cont.Rootfiles) == 0 {
		return nil, fmt.Errorf("epub: container descriptor lists no rootfile")
	}
	opfPath := cont.Rootfiles[0].FullPath

	of := findFile(zr, opfPath)
	if of == nil {
		return nil, fmt.Errorf("epub: OPF not found: %s", opfPath)
	}
	opfData, err := readAll(of)
	if err != nil {
		return nil, fmt.Errorf("epub: read OPF: %w", err)
	}

	var pkg xmlPackage
	if err := xml.Unmarshal(opfData, &pkg); err != nil {
		return nil, fmt.Errorf("epub: parse OPF: %w", err)
	}

	manifest := make(map[string]xmlManifestItem, len(pkg.Manifest))
	for _, item := range pkg.Manifest {
		manifest[item.ID] = item
	}

	opfDir := path.Dir(opfPath)
	var hrefs []string
	for _, ref := range pkg.Spine {
		item, ok := manifest[ref.IDRef]
		if !ok {
			continue
		}
		if item.MediaType != "application/xhtml+xml" && item.MediaType != "text/html" {
			continue
		}
		href := item.Href
		if opfDir != "." {
			href = path.Join(opfDir, href)
		}
		hrefs = append(hrefs, href)
	}

	return hrefs, nil
}

// WriteTranslated copies the container at srcPath to outPath, replacing the
// content of chapter files listed in replacements (keyed by zip-root href).
// The mimetype entry is written first and stored uncompressed, as the format
// requires.
func WriteTranslated(srcPath, outPath string, replacements map[string]string) error {
	zr, err := zip.OpenReader(srcPath)
	if err != nil {
		return fmt.Errorf("epub: open container %s: %w", srcPath, err)
	}
	defer zr.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("epub: create %s: %w", outPath, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)

	mimeW, err := zw.CreateHeader(&zip.FileHeader{Name: mimetypeFilePath, Method: zip.Store})
	if err != nil {
		return fmt.Errorf("epub: write mimetype: %w", err)
	}
	if _, err := mimeW.Write([]byte(epubMimetype)); err != nil {
		return fmt.Errorf("epub: write mimetype: %w", err)
	}

	for _, f := range zr.File {
		if strings.EqualFold(f.Name, mimetypeFilePath) {
			continue
		}

		w, err := zw.Create(f.Name)
		if err != nil {
			return fmt.Errorf("epub: write entry %s: %w", f.Name, err)
		}

		if markup, ok := replacements[f.Name]; ok {
			if _, err := io.WriteString(w, markup); err != nil {
				return fmt.Errorf("epub: write chapter %s: %w", f.Name, err)
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("epub: read entry %s: %w", f.Name, err)
		}
		if _, err := io.Copy(w, rc); err != nil {
			rc.Close()
			return fmt.Errorf("epub: copy entry %s: %w", f.Name, err)
		}
		rc.Close()
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("epub: finalize %s: %w", outPath, err)
	}
	return nil
}

// OutputPath derives the default translated filename:
// <stem>.<langcode>.epub next to the source.
func OutputPath(srcPath, targetLang string) string {
	code := domain.NormalizeLanguage(targetLang)
	stem := strings.TrimSuffix(srcPath, path.Ext(srcPath))
	return stem + "." + code + ".epub"
}

// Text extracts the plain text of chapter markup.
func Text(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return markup
	}
	return strings.TrimSpace(doc.Text())
}

func wordCount(markup string) int {
	return len(strings.Fields(Text(markup)))
}

func findFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}

func readAll(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}
