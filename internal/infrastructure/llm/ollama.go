package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/odoucet/epub-translator/internal/config"
	"github.com/odoucet/epub-translator/internal/domain"
	"github.com/odoucet/epub-translator/internal/ports"
)

// OllamaBackend talks to a local Ollama server through its native chat API.
type OllamaBackend struct {
	endpoint   string
	model      string
	httpClient *http.Client
}

var _ ports.Backend = (*OllamaBackend)(nil)

// NewOllamaBackend builds an adapter from configuration.
func NewOllamaBackend(cfg config.BackendConfig) *OllamaBackend {
	return &OllamaBackend{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		model:      cfg.Model,
		httpClient: newHTTPClient(),
	}
}

// Spec identifies this backend in workspaces, logs, and reports.
func (b *OllamaBackend) Spec() domain.ModelSpec {
	return domain.ModelSpec{Kind: "ollama", Endpoint: b.endpoint, Model: b.model}
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Options  map[string]any `json:"options"`
	Stream   bool           `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message chatMessage `json:"message"`
	Error   string      `json:"error"`
}

// Translate sends one chunk and returns the translated markup. Failures are
// reported as *domain.BackendError for the orchestrator's fallback machine.
func (b *OllamaBackend) Translate(ctx context.Context, req domain.Request) (string, error) {
	spec := b.Spec()

	body, err := json.Marshal(ollamaChatRequest{
		Model: b.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.Markup},
		},
		// Deterministic decoding keeps retries and resumed runs comparable.
		Options: map[string]any{"seed": 101, "temperature": 0},
		Stream:  false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal ollama payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return "", transportFailure(ctx, spec, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &domain.BackendError{
			Kind:    domain.FailureRejected,
			Backend: spec,
			Err:     fmt.Errorf("ollama %s: %s", resp.Status, strings.TrimSpace(string(payload))),
		}
	}

	var parsed ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &domain.BackendError{Kind: domain.FailureMalformed, Backend: spec, Err: err}
	}
	if parsed.Error != "" {
		return "", &domain.BackendError{Kind: domain.FailureRejected, Backend: spec, Err: errors.New(parsed.Error)}
	}

	content := strings.TrimSpace(parsed.Message.Content)
	if content == "" {
		return "", &domain.BackendError{
			Kind:    domain.FailureMalformed,
			Backend: spec,
			Err:     errors.New("empty completion"),
		}
	}

	return content, nil
}
