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

// OpenAIBackend targets any OpenAI-compatible chat-completions endpoint,
// remote or local.
type OpenAIBackend struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

var _ ports.Backend = (*OpenAIBackend)(nil)

// NewOpenAIBackend builds an adapter from configuration.
func NewOpenAIBackend(cfg config.BackendConfig) *OpenAIBackend {
	return &OpenAIBackend{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		httpClient: newHTTPClient(),
	}
}

// Spec identifies this backend in workspaces, logs, and reports.
func (b *OpenAIBackend) Spec() domain.ModelSpec {
	return domain.ModelSpec{Kind: "openai", Endpoint: b.endpoint, Model: b.model}
}

type openAIChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Translate sends one chunk as a chat completion.
func (b *OpenAIBackend) Translate(ctx context.Context, req domain.Request) (string, error) {
	spec := b.Spec()

	body, err := json.Marshal(openAIChatRequest{
		Model: b.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.Markup},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal openai payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

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
			Err:     fmt.Errorf("openai %s: %s", resp.Status, strings.TrimSpace(string(payload))),
		}
	}

	var parsed openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &domain.BackendError{Kind: domain.FailureMalformed, Backend: spec, Err: err}
	}
	if parsed.Error != nil {
		return "", &domain.BackendError{Kind: domain.FailureRejected, Backend: spec, Err: errors.New(parsed.Error.Message)}
	}
	if len(parsed.Choices) == 0 {
		return "", &domain.BackendError{Kind: domain.FailureMalformed, Backend: spec, Err: errors.New("no choices in response")}
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", &domain.BackendError{
			Kind:    domain.FailureMalformed,
			Backend: spec,
			Err:     errors.New("empty completion"),
		}
	}

	return content, nil
}
