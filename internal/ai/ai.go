// Package ai selects concrete provider implementations for the three AI
// capabilities. Dispatch on the configured backend happens exactly once,
// here, at construction time; the rest of the system only sees the
// capability interfaces.
package ai

import (
	"fmt"

	"github.com/callsight-ai/callsight/internal/ai/gemini"
	"github.com/callsight-ai/callsight/internal/ai/huggingface"
	"github.com/callsight-ai/callsight/internal/ai/mistral"
	"github.com/callsight-ai/callsight/internal/ai/openai"
	"github.com/callsight-ai/callsight/internal/config"
	"github.com/callsight-ai/callsight/internal/model"
)

func NewTranscriber(cfg config.Config) (model.Transcriber, error) {
	return newService(cfg, cfg.TranscriberService)
}

func NewAnalyzer(cfg config.Config) (model.Analyzer, error) {
	return newService(cfg, cfg.AnalyzerService)
}

func NewAnonymizer(cfg config.Config) (model.Anonymizer, error) {
	return newService(cfg, cfg.AnonymizerService)
}

// service is the full capability set every provider package implements.
type service interface {
	model.Transcriber
	model.Analyzer
	model.Anonymizer
}

func newService(cfg config.Config, selector config.Service) (service, error) {
	switch selector {
	case config.ServiceOpenAI:
		return openai.New(openai.Config{
			APIKey:         cfg.OpenAIAPIKey,
			BaseURL:        cfg.OpenAIBaseURL,
			TextModel:      cfg.OpenAITextModel,
			WhisperAPIKey:  cfg.WhisperAPIKey,
			WhisperBaseURL: cfg.WhisperBaseURL,
			WhisperModel:   cfg.WhisperModel,
			Language:       cfg.WhisperLanguage,
		})
	case config.ServiceMistral:
		return mistral.New(mistral.Config{
			APIKey:               cfg.MistralAPIKey,
			Endpoint:             cfg.MistralEndpoint,
			AudioModel:           cfg.MistralAudioModel,
			TextModel:            cfg.MistralTextModel,
			IncludeTranscription: cfg.IncludeTranscription,
		})
	case config.ServiceHuggingFace:
		return huggingface.New(huggingface.Config{
			Token:      cfg.HFToken,
			BaseURL:    cfg.HFBaseURL,
			AudioModel: cfg.HFAudioModel,
			TextModel:  cfg.HFTextModel,
		})
	case config.ServiceGemini:
		return gemini.New(gemini.Config{
			APIKey:  cfg.GeminiAPIKey,
			BaseURL: cfg.GeminiBaseURL,
			Model:   cfg.GeminiModel,
		})
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownService, selector)
	}
}
