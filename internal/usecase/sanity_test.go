package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/odoucet/epub-translator/internal/config"
)

func TestValidate(t *testing.T) {
	v := NewValidator(config.SanityConfig{TagRatioTolerance: 0.3, MinTextChars: 5})

	tests := []struct {
		name    string
		source  string
		output  string
		wantErr string
	}{
		{
			name:   "acceptable translation",
			source: "<p>Good evening world, all is well</p>",
			output: "<p>Bonsoir le monde, tout va bien</p>",
		},
		{
			name:    "too short",
			source:  "<p>Good evening world</p>",
			output:  "  ok  ",
			wantErr: "translation too short",
		},
		{
			name:    "paragraph tags missing",
			source:  "<p>Good evening world, all is well</p>",
			output:  "plain text with the paragraph markup stripped",
			wantErr: "paragraph tags missing",
		},
		{
			name:    "too little text",
			source:  "<p>Good evening world, all is well</p>",
			output:  "<p>abc</p><p>d</p>",
			wantErr: "too little text after parsing",
		},
		{
			name: "gross tag loss",
			source: "<p><em>a</em><em>b</em><em>c</em><em>d</em>" +
				"<em>e</em><em>f</em></p>",
			output:  "<p>plenty of flattened text here</p>",
			wantErr: "tag count mismatch",
		},
		{
			name:   "moderate tag drift tolerated",
			source: "<p>One <em>rich</em> paragraph of text</p>",
			output: "<p>Un paragraphe de texte riche</p>",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(tc.source, tc.output)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}
