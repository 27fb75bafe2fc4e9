package usecase

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/odoucet/epub-translator/internal/config"
)

// Validator applies the structural sanity checks to backend output before a
// chunk is committed. The tag-ratio tolerance is an approximation, not a
// contract: models reorder or merge inline tags legitimately, so the check
// only rejects gross structural loss. Tune it through config.SanityConfig.
type Validator struct {
	tolerance    float64
	minTextChars int
}

// NewValidator builds a validator from configuration.
func NewValidator(cfg config.SanityConfig) Validator {
	return Validator{
		tolerance:    cfg.TagRatioTolerance,
		minTextChars: cfg.MinTextChars,
	}
}

// Validate returns nil when output is structurally acceptable for source,
// and a reason error otherwise. The reason is fed back to the backend on
// retry.
func (v Validator) Validate(source, output string) error {
	if len(strings.TrimSpace(output)) < 10 {
		return fmt.Errorf("translation too short")
	}

	if strings.Contains(source, "<p") && !strings.Contains(output, "<p") {
		return fmt.Errorf("paragraph tags missing")
	}

	srcTags, _ := tagCensus(source)
	outTags, outText := tagCensus(output)

	if len(outText) < v.minTextChars {
		return fmt.Errorf("too little text after parsing")
	}

	if srcTags > 0 {
		ratio := float64(outTags) / float64(srcTags)
		if ratio < 1-v.tolerance || ratio > 1+v.tolerance {
			return fmt.Errorf("tag count mismatch: source %d, output %d", srcTags, outTags)
		}
	}

	return nil
}

// tagCensus counts elements and extracts text. Both source and output pass
// through the same parser, so the html/head/body wrappers it injects cancel
// out of the ratio.
func tagCensus(markup string) (int, string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return 0, ""
	}
	return doc.Find("*").Length(), strings.TrimSpace(doc.Text())
}
