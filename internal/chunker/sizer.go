package chunker

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Sizer measures a markup fragment against the chunk size bound.
type Sizer interface {
	Size(markup string) int
}

// RuneSizer counts runes; the default measure.
type RuneSizer struct{}

func (RuneSizer) Size(markup string) int {
	return utf8.RuneCountInString(markup)
}

// TokenSizer counts BPE tokens with a tiktoken encoding, so the bound can be
// expressed in the same unit as a model's context window.
type TokenSizer struct {
	enc *tiktoken.Tiktoken
}

// NewTokenSizer resolves the named tiktoken encoding (e.g. cl100k_base).
func NewTokenSizer(encoding string) (*TokenSizer, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("tiktoken encoding %s: %w", encoding, err)
	}
	return &TokenSizer{enc: enc}, nil
}

func (t *TokenSizer) Size(markup string) int {
	return len(t.enc.Encode(markup, nil, nil))
}
