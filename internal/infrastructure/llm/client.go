// Package llm contains the translation backend adapters. It is the only
// package in the module that performs network I/O.
package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/odoucet/epub-translator/internal/config"
	"github.com/odoucet/epub-translator/internal/domain"
	"github.com/odoucet/epub-translator/internal/ports"
)

// NewBackend builds an adapter for one configured backend.
func NewBackend(cfg config.BackendConfig) (ports.Backend, error) {
	switch cfg.Kind {
	case "", "ollama":
		return NewOllamaBackend(cfg), nil
	case "openai":
		return NewOpenAIBackend(cfg), nil
	}
	return nil, errors.New("unknown backend kind: " + cfg.Kind)
}

func newHTTPClient() *http.Client {
	// The per-call deadline comes from the caller's context; the transport
	// timeout is only a safety net.
	return &http.Client{Timeout: 10 * time.Minute}
}

// transportFailure classifies connection-level errors from http.Client.Do.
func transportFailure(ctx context.Context, spec domain.ModelSpec, err error) *domain.BackendError {
	kind := domain.FailureUnreachable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		kind = domain.FailureTimeout
	}
	return &domain.BackendError{Kind: kind, Backend: spec, Err: err}
}
