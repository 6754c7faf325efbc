package config

import (
	"os"
	"strconv"
	"strings"
)

// Service identifies an AI backend. The selectors are resolved once at
// startup; no runtime dispatch happens on these values afterwards.
type Service string

const (
	ServiceOpenAI      Service = "openai"
	ServiceMistral     Service = "mistral"
	ServiceHuggingFace Service = "huggingface"
	ServiceGemini      Service = "gemini"
)

type Config struct {
	// Backend selection.
	TranscriberService Service
	AnalyzerService    Service
	AnonymizerService  Service

	// Pipeline behavior.
	AnonymizeEnabled     bool
	IncludeTranscription bool // mistral analyzer: transcribe-then-chat instead of direct audio
	BatchSize            int

	// Directories.
	CampaignsDir string
	ProcessedDir string

	// OpenAI. Whisper may run against a separate deployment.
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAITextModel string
	WhisperAPIKey   string
	WhisperBaseURL  string
	WhisperModel    string
	WhisperLanguage string

	// Mistral.
	MistralAPIKey     string
	MistralEndpoint   string
	MistralAudioModel string
	MistralTextModel  string

	// HuggingFace.
	HFToken      string
	HFBaseURL    string
	HFAudioModel string
	HFTextModel  string

	// Gemini.
	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string

	// Persistence.
	DBEngine    string
	DatabaseURL string
	ExportXLSX  bool

	// Entry points.
	Port                 int
	NatsURL              string
	NatsToken            string
	StorageEventsSubject string

	LogLevel string
}

func Load() Config {
	return Config{
		TranscriberService: Service(envStr("AI_TRANSCRIBER_SERVICE", "openai")),
		AnalyzerService:    Service(envStr("AI_ANALYZER_SERVICE", "openai")),
		AnonymizerService:  Service(envStr("AI_ANONYMIZER_SERVICE", envStr("AI_ANALYZER_SERVICE", "openai"))),

		AnonymizeEnabled:     envBool("ANONYMIZE", false),
		IncludeTranscription: envBool("MISTRAL_INCLUDE_TRANSCRIPTION", false),
		BatchSize:            envInt("BATCH_SIZE", 3),

		CampaignsDir: envStr("CAMPAIGNS_DIR", "campaigns"),
		ProcessedDir: envStr("PROCESSED_DIR", "processed"),

		OpenAIAPIKey:    envStr("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   envStr("OPENAI_BASE_URL", ""),
		OpenAITextModel: envStr("OPENAI_MODEL", "gpt-3.5-turbo"),
		WhisperAPIKey:   envStr("WHISPER_API_KEY", envStr("OPENAI_API_KEY", "")),
		WhisperBaseURL:  envStr("WHISPER_BASE_URL", ""),
		WhisperModel:    envStr("WHISPER_MODEL", "whisper-1"),
		WhisperLanguage: envStr("WHISPER_LANGUAGE", ""),

		MistralAPIKey:     envStr("MISTRAL_API_KEY", ""),
		MistralEndpoint:   envStr("MISTRAL_ENDPOINT", "https://api.mistral.ai/v1"),
		MistralAudioModel: envStr("MISTRAL_MODEL_AUDIO", "voxtral-mini-latest"),
		MistralTextModel:  envStr("MISTRAL_MODEL_TEXT", "mistral-small-2506"),

		HFToken:      envStr("HF_TOKEN", ""),
		HFBaseURL:    envStr("HF_BASE_URL", "https://router.huggingface.co"),
		HFAudioModel: envStr("HF_AUDIO_MODEL", "openai/whisper-large-v3"),
		HFTextModel:  envStr("HF_TEXT_MODEL", "Qwen/Qwen2.5-72B-Instruct"),

		GeminiAPIKey:  envStr("GEMINI_KEY", ""),
		GeminiBaseURL: envStr("GEMINI_BASE_URL", ""),
		GeminiModel:   envStr("GEMINI_MODEL", "gemini-2.5-flash"),

		DBEngine:    envStr("DB_ENGINE", ""),
		DatabaseURL: envStr("DATABASE_URL", ""),
		ExportXLSX:  envBool("EXPORT_XLSX", false),

		Port:                 envInt("PORT", 8080),
		NatsURL:              envStr("NATS_URL", ""),
		NatsToken:            envStr("NATS_TOKEN", ""),
		StorageEventsSubject: envStr("STORAGE_EVENTS_SUBJECT", "storage.object.created"),

		LogLevel: envStr("LOG_LEVEL", "info"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return fallback
}
