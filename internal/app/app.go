// Package app wires configuration to the translation use cases.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/odoucet/epub-translator/internal/chunker"
	"github.com/odoucet/epub-translator/internal/config"
	"github.com/odoucet/epub-translator/internal/domain"
	"github.com/odoucet/epub-translator/internal/epub"
	"github.com/odoucet/epub-translator/internal/infrastructure/llm"
	"github.com/odoucet/epub-translator/internal/notes"
	"github.com/odoucet/epub-translator/internal/ports"
	"github.com/odoucet/epub-translator/internal/prompts"
	"github.com/odoucet/epub-translator/internal/rights"
	"github.com/odoucet/epub-translator/internal/usecase"
	"github.com/odoucet/epub-translator/internal/workspace"
)

// Application holds the config and logger shared by all commands.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
}

// New builds a runnable application instance.
func New(cfg config.Config, logger *slog.Logger) *Application {
	return &Application{cfg: cfg, logger: logger}
}

// TranslateOptions are the parameters of one delivery-mode run.
type TranslateOptions struct {
	File        string
	SourceLang  string
	TargetLang  string
	PromptStyle string
	Models      []string // fallback priority order; empty keeps config order
	URL         string   // endpoint override for model flags
	Workspace   string   // directory holding progress files
	Chapter     *int     // 1-based, nil for the whole book
	Output      string
	Force       bool
}

// Translate runs the full pipeline: rights gate, chunking, orchestration,
// reassembly, container rewrite. A partial run leaves the workspace ready
// for resume and returns domain.ErrIncomplete.
func (a *Application) Translate(ctx context.Context, opts TranslateOptions) error {
	scanner := rights.NewScanner()
	if err := scanner.Scan(opts.File); err != nil {
		return err
	}

	doc, err := epub.Load(opts.File, a.cfg.Chunker.MinWords)
	if err != nil {
		return err
	}
	a.logger.Info("book loaded", "file", opts.File, "key", doc.Key, "chapters", len(doc.Chapters))

	base, err := a.baseRequest(opts.SourceLang, opts.TargetLang, opts.PromptStyle)
	if err != nil {
		return err
	}

	backends, err := a.backends(opts.Models, opts.URL)
	if err != nil {
		return err
	}

	store, err := workspace.Open(a.workspaceDir(opts.Workspace), doc.Key)
	if err != nil {
		return err
	}
	defer store.Close()
	a.logger.Info("workspace open", "path", store.Path())

	split, err := a.newChunker()
	if err != nil {
		return err
	}

	orch := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Backends:    backends,
		Store:       store,
		Validator:   usecase.NewValidator(a.cfg.Sanity),
		MaxAttempts: a.cfg.Retry.MaxAttempts,
		CallTimeout: a.cfg.Retry.CallTimeout,
		Force:       opts.Force,
		Logger:      a.logger.With("component", "orchestrator"),
	})
	controller := usecase.NewController(split, orch, store, a.logger.With("component", "pipeline"))

	var chapterIdx *int
	if opts.Chapter != nil {
		idx := *opts.Chapter - 1
		chapterIdx = &idx
	}

	summary, err := controller.Run(ctx, doc, base, chapterIdx)
	if err != nil {
		return err
	}

	for _, ch := range summary.Chapters {
		a.logger.Info("chapter result", "chapter", ch.Index, "href", ch.Href,
			"state", string(ch.State), "chunks", ch.Outcome.Total,
			"translated", ch.Outcome.Done, "resumed", ch.Outcome.Skipped,
			"failed", ch.Outcome.Failed)
	}

	if len(summary.Reassembled) > 0 {
		out := opts.Output
		if out == "" {
			out = epub.OutputPath(opts.File, opts.TargetLang)
		}
		if err := epub.WriteTranslated(opts.File, out, summary.Reassembled); err != nil {
			return err
		}
		a.logger.Info("translated book written", "output", out, "chapters", len(summary.Reassembled))
	}

	return summary.Err()
}

// CompareOptions are the parameters of one comparison-mode run.
type CompareOptions struct {
	File        string
	SourceLang  string
	TargetLang  string
	PromptStyle string
	Models      []string
	URL         string
	Chapter     int // 1-based
	Output      string
}

// Compare sends every chunk of one chapter to every backend and writes the
// side-by-side markdown report. Nothing is persisted to a workspace.
func (a *Application) Compare(ctx context.Context, opts CompareOptions) error {
	scanner := rights.NewScanner()
	if err := scanner.Scan(opts.File); err != nil {
		return err
	}

	doc, err := epub.Load(opts.File, a.cfg.Chunker.MinWords)
	if err != nil {
		return err
	}
	idx := opts.Chapter - 1
	if idx < 0 || idx >= len(doc.Chapters) {
		return fmt.Errorf("chapter %d not found (document has %d translatable chapters)", opts.Chapter, len(doc.Chapters))
	}
	ch := doc.Chapters[idx]

	base, err := a.baseRequest(opts.SourceLang, opts.TargetLang, opts.PromptStyle)
	if err != nil {
		return err
	}

	backends, err := a.backends(opts.Models, opts.URL)
	if err != nil {
		return err
	}

	split, err := a.newChunker()
	if err != nil {
		return err
	}
	chunks, err := split.Split(ch)
	if err != nil {
		return err
	}

	orch := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Backends:    backends,
		Validator:   usecase.NewValidator(a.cfg.Sanity),
		MaxAttempts: 1,
		CallTimeout: a.cfg.Retry.CallTimeout,
		Logger:      a.logger.With("component", "compare"),
	})

	reports := make([]usecase.ModelReport, len(backends))
	outputs := make([]string, len(backends))
	success := make([]bool, len(backends))
	for i, b := range backends {
		reports[i].Model = b.Spec().String()
		success[i] = true
	}

	for _, chunk := range chunks {
		results := orch.CompareChunk(ctx, chunk, base)
		for i, r := range results {
			reports[i].Elapsed += r.Elapsed
			if r.Err != nil {
				success[i] = false
				a.logger.Warn("comparison attempt failed", "backend", r.Backend.String(),
					"ordinal", chunk.Ordinal, "error", r.Err)
				continue
			}
			outputs[i] += r.Output
		}
	}

	for i := range reports {
		reports[i].Success = success[i]
		if !success[i] {
			continue
		}
		processed, found := notes.Extract(outputs[i], 1)
		reports[i].Plain = epub.Text(processed + notes.Footnotes(found))
	}

	out, err := os.Create(opts.Output)
	if err != nil {
		return fmt.Errorf("create report %s: %w", opts.Output, err)
	}
	defer out.Close()

	return usecase.WriteComparisonReport(out, epub.Text(ch.Markup), reports)
}

// Inspect runs only the rights gate and reports the result.
func (a *Application) Inspect(path string) error {
	scanner := rights.NewScanner()
	if err := scanner.Scan(path); err != nil {
		return err
	}
	a.logger.Info("container clear", "file", path)
	return nil
}

func (a *Application) baseRequest(sourceLang, targetLang, style string) (domain.Request, error) {
	if style == "" {
		style = prompts.DefaultStyle
	}
	prompt, err := prompts.Render(style, targetLang)
	if err != nil {
		return domain.Request{}, err
	}
	return domain.Request{
		SourceLang:   domain.NormalizeLanguage(sourceLang),
		TargetLang:   domain.NormalizeLanguage(targetLang),
		SystemPrompt: prompt,
	}, nil
}

// backends resolves the fallback chain. Model flags override the configured
// chain but inherit the first configured backend's kind, endpoint, and key;
// a URL flag overrides the endpoint for all of them.
func (a *Application) backends(models []string, url string) ([]ports.Backend, error) {
	cfgs := a.cfg.Backends
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("no backends configured")
	}

	if len(models) > 0 {
		tmpl := cfgs[0]
		cfgs = make([]config.BackendConfig, 0, len(models))
		for _, m := range models {
			bc := tmpl
			bc.Model = m
			cfgs = append(cfgs, bc)
		}
	}

	out := make([]ports.Backend, 0, len(cfgs))
	for _, bc := range cfgs {
		if url != "" {
			bc.Endpoint = url
		}
		b, err := llm.NewBackend(bc)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (a *Application) newChunker() (ports.Chunker, error) {
	var sizer chunker.Sizer
	if a.cfg.Chunker.Measure == "tokens" {
		ts, err := chunker.NewTokenSizer(a.cfg.Chunker.Encoding)
		if err != nil {
			return nil, err
		}
		sizer = ts
	}
	return chunker.New(a.cfg.Chunker.MaxSize, sizer), nil
}

func (a *Application) workspaceDir(flag string) string {
	if flag != "" {
		return flag
	}
	if a.cfg.Workspace.Dir != "" {
		return a.cfg.Workspace.Dir
	}
	return "."
}
