package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/odoucet/epub-translator/internal/app"
	"github.com/odoucet/epub-translator/internal/prompts"
)

// defaultCompareModels is the comparison set used when none is given.
var defaultCompareModels = []string{"mistral", "gemma3:4b", "nous-hermes2"}

func newCompareCmd(application *app.Application, logger *slog.Logger) *cobra.Command {
	var (
		file        string
		sourceLang  string
		targetLang  string
		promptStyle string
		models      []string
		url         string
		chapter     int
		output      string
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Translate one chapter with several models and write a side-by-side report",
		RunE: func(cmd *cobra.Command, args []string) error {
			if targetLang == "" {
				return fmt.Errorf("--lang is required")
			}

			err := application.Compare(cmd.Context(), app.CompareOptions{
				File:        file,
				SourceLang:  sourceLang,
				TargetLang:  targetLang,
				PromptStyle: promptStyle,
				Models:      models,
				URL:         url,
				Chapter:     chapter,
				Output:      output,
			})
			if err != nil {
				logError(logger, err)
				return err
			}
			logger.Info("comparison report written", "output", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to the .epub file")
	cmd.Flags().StringVar(&sourceLang, "source-lang", "", "source language")
	cmd.Flags().StringVarP(&targetLang, "lang", "l", "", "target language")
	cmd.Flags().StringVarP(&promptStyle, "prompt-style", "p", prompts.DefaultStyle, "prompt style")
	cmd.Flags().StringArrayVarP(&models, "model", "m", defaultCompareModels, "model to compare; repeatable")
	cmd.Flags().StringVarP(&url, "url", "u", "", "backend endpoint override")
	cmd.Flags().IntVarP(&chapter, "chapter", "c", 3, "chapter to compare (1-based)")
	cmd.Flags().StringVarP(&output, "output", "o", "model_comparison.md", "output markdown file")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
