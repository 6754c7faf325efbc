package config

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type ConfigSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) TestDefaults() {
	cfg := Load()

	s.Equal(ServiceOpenAI, cfg.TranscriberService)
	s.Equal(ServiceOpenAI, cfg.AnalyzerService)
	s.Equal(ServiceOpenAI, cfg.AnonymizerService)
	s.False(cfg.AnonymizeEnabled)
	s.False(cfg.IncludeTranscription)
	s.Equal(3, cfg.BatchSize)
	s.Equal("campaigns", cfg.CampaignsDir)
	s.Equal("processed", cfg.ProcessedDir)
	s.Equal(8080, cfg.Port)
	s.Equal("storage.object.created", cfg.StorageEventsSubject)
	s.Equal("whisper-1", cfg.WhisperModel)
	s.Equal("voxtral-mini-latest", cfg.MistralAudioModel)
}

func (s *ConfigSuite) TestServiceSelection() {
	s.T().Setenv("AI_TRANSCRIBER_SERVICE", "huggingface")
	s.T().Setenv("AI_ANALYZER_SERVICE", "mistral")

	cfg := Load()
	s.Equal(ServiceHuggingFace, cfg.TranscriberService)
	s.Equal(ServiceMistral, cfg.AnalyzerService)
	// The anonymizer follows the analyzer unless set explicitly.
	s.Equal(ServiceMistral, cfg.AnonymizerService)
}

func (s *ConfigSuite) TestAnonymizerOverride() {
	s.T().Setenv("AI_ANALYZER_SERVICE", "mistral")
	s.T().Setenv("AI_ANONYMIZER_SERVICE", "openai")

	cfg := Load()
	s.Equal(ServiceOpenAI, cfg.AnonymizerService)
}

func (s *ConfigSuite) TestNumericAndBoolOverrides() {
	s.T().Setenv("BATCH_SIZE", "5")
	s.T().Setenv("ANONYMIZE", "true")
	s.T().Setenv("EXPORT_XLSX", "1")
	s.T().Setenv("MISTRAL_INCLUDE_TRANSCRIPTION", "yes")

	cfg := Load()
	s.Equal(5, cfg.BatchSize)
	s.True(cfg.AnonymizeEnabled)
	s.True(cfg.ExportXLSX)
	s.True(cfg.IncludeTranscription)
}

func (s *ConfigSuite) TestInvalidNumberFallsBack() {
	s.T().Setenv("BATCH_SIZE", "many")
	cfg := Load()
	s.Equal(3, cfg.BatchSize)
}

func (s *ConfigSuite) TestProviderEndpointOverrides() {
	cfg := Load()
	s.Empty(cfg.GeminiBaseURL)
	s.Empty(cfg.WhisperLanguage)

	s.T().Setenv("GEMINI_BASE_URL", "https://gemini-proxy.internal")
	s.T().Setenv("WHISPER_LANGUAGE", "es")

	cfg = Load()
	s.Equal("https://gemini-proxy.internal", cfg.GeminiBaseURL)
	s.Equal("es", cfg.WhisperLanguage)
}

func (s *ConfigSuite) TestWhisperKeyFallsBackToOpenAIKey() {
	s.T().Setenv("OPENAI_API_KEY", "sk-shared")
	cfg := Load()
	s.Equal("sk-shared", cfg.WhisperAPIKey)

	s.T().Setenv("WHISPER_API_KEY", "sk-whisper")
	cfg = Load()
	s.Equal("sk-whisper", cfg.WhisperAPIKey)
}
