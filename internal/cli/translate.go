package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odoucet/epub-translator/internal/app"
	"github.com/odoucet/epub-translator/internal/prompts"
)

func newTranslateCmd(application *app.Application, logger *slog.Logger) *cobra.Command {
	var (
		file        string
		sourceLang  string
		targetLang  string
		promptStyle string
		models      []string
		url         string
		workspace   string
		chapter     int
		output      string
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate a book, resuming from the workspace when one exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			if targetLang == "" {
				return fmt.Errorf("--lang is required")
			}

			opts := app.TranslateOptions{
				File:        file,
				SourceLang:  sourceLang,
				TargetLang:  targetLang,
				PromptStyle: promptStyle,
				Models:      models,
				URL:         url,
				Workspace:   workspace,
				Output:      output,
				Force:       force,
			}
			if cmd.Flags().Changed("chapter") {
				if chapter < 1 {
					return fmt.Errorf("--chapter is 1-based")
				}
				opts.Chapter = &chapter
			}

			err := application.Translate(cmd.Context(), opts)
			if err != nil {
				logError(logger, err)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to the .epub file")
	cmd.Flags().StringVar(&sourceLang, "source-lang", "", "source language (detected by the model when empty)")
	cmd.Flags().StringVarP(&targetLang, "lang", "l", "", "target language (e.g. french, german)")
	cmd.Flags().StringVarP(&promptStyle, "prompt-style", "p", prompts.DefaultStyle, "prompt style: "+strings.Join(prompts.Styles(), "|"))
	cmd.Flags().StringArrayVarP(&models, "model", "m", nil, "model name; repeat to define the fallback order")
	cmd.Flags().StringVarP(&url, "url", "u", "", "backend endpoint override")
	cmd.Flags().StringVarP(&workspace, "workspace", "w", "", "directory for resumable progress files")
	cmd.Flags().IntVar(&chapter, "chapter", 0, "translate only chapter N (1-based)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output filename (default: <original>.<lang>.epub)")
	cmd.Flags().BoolVar(&force, "force", false, "re-translate chunks already marked done")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
