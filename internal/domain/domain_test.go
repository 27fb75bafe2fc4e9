package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct{ in, want string }{
		{"french", "fr"},
		{"French", "fr"},
		{" GERMAN ", "de"},
		{"ja", "ja"},
		{"klingon", "klingon"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, NormalizeLanguage(tc.in), tc.in)
	}
}

func TestModelSpecString(t *testing.T) {
	assert.Equal(t, "ollama/mistral", ModelSpec{Kind: "ollama", Model: "mistral"}.String())
	assert.Equal(t, "mistral", ModelSpec{Model: "mistral"}.String())
}

func TestClassifyFailure(t *testing.T) {
	be := &BackendError{Kind: FailureTimeout, Backend: ModelSpec{Kind: "ollama", Model: "m"}}
	assert.Equal(t, FailureTimeout, ClassifyFailure(be))
	assert.Equal(t, FailureTimeout, ClassifyFailure(fmt.Errorf("attempt: %w", be)))
	assert.Equal(t, FailureUnreachable, ClassifyFailure(fmt.Errorf("plain failure")))
}

func TestBackendErrorMessage(t *testing.T) {
	err := &BackendError{
		Kind:    FailureRejected,
		Backend: ModelSpec{Kind: "ollama", Model: "mistral"},
		Err:     fmt.Errorf("status 500"),
	}
	assert.EqualError(t, err, "backend ollama/mistral: rejected: status 500")
	assert.EqualError(t, err.Err, "status 500")
}
