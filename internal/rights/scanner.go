// Package rights inspects an EPUB container for digital-rights-management
// signatures. It is a gate, not a transform: a blocked container never
// reaches the chunker or a backend.
package rights

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"strings"

	"github.com/odoucet/epub-translator/internal/domain"
	"github.com/odoucet/epub-translator/internal/ports"
)

const (
	encryptionFilePath = "META-INF/encryption.xml"
	sinfFilePath       = "META-INF/sinf.xml"
	rightsFilePath     = "META-INF/rights.xml"
	lcpLicensePath     = "META-INF/license.lcpl"
)

// Font obfuscation algorithm URIs. These do not constitute DRM.
var fontObfuscationAlgorithms = map[string]bool{
	"http://www.idpf.org/2008/embedding": true,
	"http://ns.adobe.com/pdf/enc#RC":     true,
}

// schemeSignatures maps content markers inside rights/encryption files to a
// human-readable protection-scheme label.
var schemeSignatures = []struct {
	marker string
	scheme string
}{
	{"http://ns.adobe.com/adept", "Adobe ADEPT"},
	{"http://readium.org/2014/01/lcp", "Readium LCP"},
}

type xmlEncryption struct {
	XMLName       xml.Name           `xml:"encryption"`
	EncryptedData []xmlEncryptedData `xml:"EncryptedData"`
}

type xmlEncryptedData struct {
	EncryptionMethod xmlEncryptionMethod `xml:"EncryptionMethod"`
	KeyInfo          xmlKeyInfo          `xml:"KeyInfo"`
}

type xmlEncryptionMethod struct {
	Algorithm string `xml:"Algorithm,attr"`
}

type xmlKeyInfo struct {
	InnerXML string `xml:",innerxml"`
}

// Scanner detects known protection schemes by container-internal paths and
// content markers.
type Scanner struct{}

var _ ports.RightsScanner = (*Scanner)(nil)

// NewScanner builds a signature-based rights scanner.
func NewScanner() *Scanner {
	return &Scanner{}
}

// Scan returns nil when the container is clear and a
// *domain.RightsBlockedError naming the scheme when it is protected.
// An unreadable container is treated as blocked, never as clear.
func (s *Scanner) Scan(path string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return &domain.RightsBlockedError{Scheme: "unreadable container"}
	}
	defer zr.Close()

	return ScanReader(&zr.Reader)
}

// ScanReader runs the signature checks against an already opened container.
func ScanReader(zr *zip.Reader) error {
	if findFile(zr, sinfFilePath) != nil {
		return &domain.RightsBlockedError{Scheme: "Apple FairPlay"}
	}

	if f := findFile(zr, lcpLicensePath); f != nil {
		return &domain.RightsBlockedError{Scheme: "Readium LCP"}
	}

	if f := findFile(zr, rightsFilePath); f != nil {
		data, err := readAll(f)
		if err != nil {
			return &domain.RightsBlockedError{Scheme: "unreadable rights manifest"}
		}
		if scheme, ok := matchScheme(string(data)); ok {
			return &domain.RightsBlockedError{Scheme: scheme}
		}
		// A rights manifest without a recognized marker still signals a
		// vendor licensing scheme.
		return &domain.RightsBlockedError{Scheme: "vendor rights manifest"}
	}

	if f := findFile(zr, encryptionFilePath); f != nil {
		return scanEncryption(f)
	}

	return nil
}

// scanEncryption distinguishes real DRM entries from font obfuscation.
func scanEncryption(f *zip.File) error {
	data, err := readAll(f)
	if err != nil {
		return &domain.RightsBlockedError{Scheme: "unreadable encryption manifest"}
	}

	var enc xmlEncryption
	if err := xml.Unmarshal(data, &enc); err != nil {
		// Cannot determine the structure: fail closed.
		return &domain.RightsBlockedError{Scheme: "unparseable encryption manifest"}
	}

	for _, ed := range enc.EncryptedData {
		algo := ed.EncryptionMethod.Algorithm
		if fontObfuscationAlgorithms[algo] {
			continue
		}
		if scheme, ok := matchScheme(algo); ok {
			return &domain.RightsBlockedError{Scheme: scheme}
		}
		if scheme, ok := matchScheme(ed.KeyInfo.InnerXML); ok {
			return &domain.RightsBlockedError{Scheme: scheme}
		}
		return &domain.RightsBlockedError{Scheme: "encrypted content"}
	}

	return nil
}

func matchScheme(s string) (string, bool) {
	for _, sig := range schemeSignatures {
		if strings.Contains(s, sig.marker) {
			return sig.scheme, true
		}
	}
	return "", false
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
