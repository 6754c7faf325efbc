package ai

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/callsight-ai/callsight/internal/config"
	"github.com/callsight-ai/callsight/internal/model"
)

type FactorySuite struct {
	suite.Suite
}

func TestFactorySuite(t *testing.T) {
	suite.Run(t, new(FactorySuite))
}

func (s *FactorySuite) baseConfig() config.Config {
	return config.Config{
		OpenAIAPIKey:  "sk-test",
		MistralAPIKey: "mi-test",
		HFToken:       "hf-test",
		GeminiAPIKey:  "gm-test",
	}
}

func (s *FactorySuite) TestUnknownService() {
	cfg := s.baseConfig()
	cfg.AnalyzerService = config.Service("watson")

	_, err := NewAnalyzer(cfg)
	s.ErrorIs(err, model.ErrUnknownService)
	s.Contains(err.Error(), "watson")
}

func (s *FactorySuite) TestEachBackendConstructs() {
	for _, service := range []config.Service{
		config.ServiceOpenAI,
		config.ServiceMistral,
		config.ServiceHuggingFace,
		config.ServiceGemini,
	} {
		cfg := s.baseConfig()
		cfg.TranscriberService = service
		cfg.AnalyzerService = service
		cfg.AnonymizerService = service

		transcriber, err := NewTranscriber(cfg)
		s.NoError(err, "transcriber %s", service)
		s.NotNil(transcriber)

		analyzer, err := NewAnalyzer(cfg)
		s.NoError(err, "analyzer %s", service)
		s.NotNil(analyzer)

		anonymizer, err := NewAnonymizer(cfg)
		s.NoError(err, "anonymizer %s", service)
		s.NotNil(anonymizer)
	}
}

func (s *FactorySuite) TestDirectAudioPerBackend() {
	cases := map[config.Service]bool{
		config.ServiceOpenAI:      false,
		config.ServiceHuggingFace: false,
		config.ServiceMistral:     true,
		config.ServiceGemini:      true,
	}
	for service, wantDirect := range cases {
		cfg := s.baseConfig()
		cfg.AnalyzerService = service

		analyzer, err := NewAnalyzer(cfg)
		s.Require().NoError(err)
		s.Equal(wantDirect, analyzer.DirectAudio(), "service %s", service)
	}
}

func (s *FactorySuite) TestMistralIncludeTranscriptionDisablesDirectAudio() {
	cfg := s.baseConfig()
	cfg.AnalyzerService = config.ServiceMistral
	cfg.IncludeTranscription = true

	analyzer, err := NewAnalyzer(cfg)
	s.Require().NoError(err)
	s.False(analyzer.DirectAudio())
}

func (s *FactorySuite) TestMissingCredentialFailsConstruction() {
	cfg := s.baseConfig()
	cfg.MistralAPIKey = ""
	cfg.AnalyzerService = config.ServiceMistral

	_, err := NewAnalyzer(cfg)
	s.Error(err)
}
