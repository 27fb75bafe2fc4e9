package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/odoucet/epub-translator/internal/domain"
	"github.com/odoucet/epub-translator/internal/ports"
)

// Orchestrator drives per-chunk translation: retries against one backend,
// fallback across backends in priority order, and the comparison fan-out.
// It touches persisted progress only through the workspace port.
type Orchestrator struct {
	backends    []ports.Backend
	store       ports.WorkspaceStore
	validator   Validator
	maxAttempts int
	callTimeout time.Duration
	force       bool
	logger      *slog.Logger
}

// OrchestratorDeps wires the orchestration component.
type OrchestratorDeps struct {
	Backends    []ports.Backend
	Store       ports.WorkspaceStore
	Validator   Validator
	MaxAttempts int
	CallTimeout time.Duration
	Force       bool
	Logger      *slog.Logger
}

// NewOrchestrator constructs the delivery-mode state machine.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	maxAttempts := deps.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Orchestrator{
		backends:    deps.Backends,
		store:       deps.Store,
		validator:   deps.Validator,
		maxAttempts: maxAttempts,
		callTimeout: deps.CallTimeout,
		force:       deps.Force,
		logger:      deps.Logger,
	}
}

// ChapterOutcome aggregates per-chunk results for one chapter pass.
type ChapterOutcome struct {
	Total   int
	Done    int
	Skipped int
	Failed  int
}

// Complete reports whether every chunk of the chapter is committed.
func (o ChapterOutcome) Complete() bool {
	return o.Failed == 0
}

// TranslateChapter runs delivery mode over the chapter's chunks in ordinal
// order. Chunks already done in the workspace are skipped without a backend
// call. A chunk that exhausts every backend is recorded as failed and the
// chapter continues; only context cancellation aborts the pass.
func (o *Orchestrator) TranslateChapter(ctx context.Context, chunks []domain.Chunk, base domain.Request) (ChapterOutcome, error) {
	outcome := ChapterOutcome{Total: len(chunks)}

	for _, chunk := range chunks {
		if ctx.Err() != nil {
			return outcome, ctx.Err()
		}

		if !o.force && o.store.IsDone(chunk.ChapterIndex, chunk.Ordinal) {
			outcome.Skipped++
			continue
		}

		attempt := o.translateChunk(ctx, chunk, base)
		switch attempt.Status {
		case domain.AttemptSuccess:
			backend := attempt.Backend.String()
			if err := o.store.MarkDone(chunk.ChapterIndex, chunk.Ordinal, attempt.Output, backend); err != nil {
				return outcome, fmt.Errorf("commit chunk %d/%d: %w", chunk.ChapterIndex, chunk.Ordinal, err)
			}
			outcome.Done++
		default:
			if ctx.Err() != nil {
				return outcome, ctx.Err()
			}
			reason := domain.ErrChunkExhausted.Error()
			if attempt.Err != nil {
				reason = attempt.Err.Error()
			}
			if err := o.store.MarkFailed(chunk.ChapterIndex, chunk.Ordinal, reason); err != nil {
				return outcome, fmt.Errorf("record failure %d/%d: %w", chunk.ChapterIndex, chunk.Ordinal, err)
			}
			o.logger.Warn("chunk exhausted",
				"chapter", chunk.ChapterIndex, "ordinal", chunk.Ordinal, "reason", reason)
			outcome.Failed++
		}
	}

	return outcome, nil
}

// translateChunk walks backends in priority order, retrying each up to the
// attempt limit before falling through to the next.
func (o *Orchestrator) translateChunk(ctx context.Context, chunk domain.Chunk, base domain.Request) domain.TranslationAttempt {
	last := domain.TranslationAttempt{Status: domain.AttemptFailed, Err: domain.ErrChunkExhausted}

	// The corrective hint accumulates across attempts of this chunk, the
	// same way the retry prompt grows in interactive use.
	prompt := base.SystemPrompt

	for _, backend := range o.backends {
		spec := backend.Spec()
		for attempt := 1; attempt <= o.maxAttempts; attempt++ {
			if ctx.Err() != nil {
				last.Err = ctx.Err()
				return last
			}

			req := base
			req.Markup = chunk.Markup
			req.SystemPrompt = prompt
			start := time.Now()
			output, err := o.call(ctx, backend, req)
			elapsed := time.Since(start)

			if err != nil {
				kind := domain.ClassifyFailure(err)
				o.logger.Debug("attempt failed",
					"backend", spec.String(), "chapter", chunk.ChapterIndex,
					"ordinal", chunk.Ordinal, "attempt", attempt,
					"kind", string(kind), "elapsed", elapsed)
				last = domain.TranslationAttempt{Backend: spec, Status: domain.AttemptFailed, Err: err, Elapsed: elapsed}
				if kind == domain.FailureTimeout {
					last.Status = domain.AttemptTimeout
				}
				continue
			}

			if verr := o.validator.Validate(chunk.Markup, output); verr != nil {
				o.logger.Debug("attempt rejected by sanity check",
					"backend", spec.String(), "chapter", chunk.ChapterIndex,
					"ordinal", chunk.Ordinal, "attempt", attempt, "reason", verr)
				prompt += "\nPrevious attempt failed: " + verr.Error() + ". Preserve all HTML tags."
				last = domain.TranslationAttempt{
					Backend: spec,
					Status:  domain.AttemptFailed,
					Err:     &domain.BackendError{Kind: domain.FailureMalformed, Backend: spec, Err: verr},
					Elapsed: elapsed,
				}
				continue
			}

			return domain.TranslationAttempt{Backend: spec, Status: domain.AttemptSuccess, Output: output, Elapsed: elapsed}
		}
		o.logger.Info("backend exhausted, falling back",
			"backend", spec.String(), "chapter", chunk.ChapterIndex, "ordinal", chunk.Ordinal)
	}

	return last
}

// call applies the per-call timeout. On expiry the request context is
// cancelled and the attempt is classified as a timeout; the response is not
// awaited further.
func (o *Orchestrator) call(ctx context.Context, backend ports.Backend, req domain.Request) (string, error) {
	if o.callTimeout <= 0 {
		return backend.Translate(ctx, req)
	}
	cctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	return backend.Translate(cctx, req)
}

// CompareResult is one backend's answer for one chunk in comparison mode.
type CompareResult struct {
	Backend domain.ModelSpec
	Output  string
	Err     error
	Elapsed time.Duration
}

// CompareChunk fans the same chunk out to every backend concurrently and
// joins all results. Nothing is committed to the workspace; the results
// order matches the backend order.
func (o *Orchestrator) CompareChunk(ctx context.Context, chunk domain.Chunk, base domain.Request) []CompareResult {
	results := make([]CompareResult, len(o.backends))

	var wg sync.WaitGroup
	for i, backend := range o.backends {
		wg.Add(1)
		go func(i int, backend ports.Backend) {
			defer wg.Done()
			req := base
			req.Markup = chunk.Markup
			start := time.Now()
			output, err := o.call(ctx, backend, req)
			results[i] = CompareResult{
				Backend: backend.Spec(),
				Output:  output,
				Err:     err,
				Elapsed: time.Since(start),
			}
		}(i, backend)
	}
	wg.Wait()

	return results
}
