package main

import (
	"github.com/spf13/cobra"

	"github.com/rodekruis/qfa/internal/classifier"
	"github.com/rodekruis/qfa/internal/classifier/gemini"
	"github.com/rodekruis/qfa/internal/classifier/openai"
	"github.com/rodekruis/qfa/internal/classifier/zeroshot"
	"github.com/rodekruis/qfa/internal/config"
)

type modelInfo struct {
	Provider  string   `json:"provider"`
	Model     string   `json:"model"`
	Available []string `json:"available"`
}

// NewModelCmd reports which classifier is configured without loading it.
func NewModelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "model",
		Short: "Show the configured classification model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), describeModel(cfg))
		},
	}
}

func describeModel(cfg config.Config) modelInfo {
	c := cfg.Classifier
	name := c.Model
	if name == "" {
		switch c.Provider {
		case zeroshot.Provider:
			name = c.ModelPath
		case gemini.Provider:
			name = gemini.DefaultModel
		case openai.Provider:
			name = openai.DefaultModel
		}
	}
	return modelInfo{Provider: c.Provider, Model: name, Available: classifier.Providers()}
}
