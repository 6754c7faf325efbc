package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/callsight-ai/callsight/internal/logging"
	"github.com/callsight-ai/callsight/internal/model"
	"github.com/callsight-ai/callsight/internal/prompt"
	"github.com/callsight-ai/callsight/internal/utils"
)

const (
	providerName             = "openai"
	defaultTextModelName     = "gpt-3.5-turbo"
	defaultAudioModelName    = "whisper-1"
	analysisTemperature      = 0.2
	anonymizationTemperature = 0.2
)

// Formats Whisper accepts for upload.
var supportedFormats = []string{"mp3", "mp4", "mpeg", "mpga", "m4a", "wav", "webm"}

type Config struct {
	APIKey    string
	BaseURL   string
	TextModel string

	// Whisper may run against a separate deployment with its own credentials.
	WhisperAPIKey  string
	WhisperBaseURL string
	WhisperModel   string

	// Language pins the transcription language hint when set (ISO 639-1).
	Language string
}

// Service satisfies Transcriber, Analyzer, and Anonymizer against the OpenAI
// API: Whisper for transcription, chat completions for analysis and
// anonymization. Analysis is transcript-driven; when the pipeline hands in no
// transcript the service produces one itself first.
type Service struct {
	chat    openai.Client
	whisper openai.Client
	cfg     Config
}

func New(cfg Config) (*Service, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, utils.WrapIfNotNil(errors.New("api key is required (set OPENAI_API_KEY)"))
	}

	whisperKey := strings.TrimSpace(cfg.WhisperAPIKey)
	if whisperKey == "" {
		whisperKey = cfg.APIKey
	}

	return &Service{
		chat:    newAPIClient(cfg.APIKey, cfg.BaseURL),
		whisper: newAPIClient(whisperKey, cfg.WhisperBaseURL),
		cfg:     cfg,
	}, nil
}

func newAPIClient(apiKey, baseURL string) openai.Client {
	requestOpts := make([]option.RequestOption, 0, 2)
	if baseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(baseURL))
	}
	if apiKey != "" {
		requestOpts = append(requestOpts, option.WithAPIKey(apiKey))
	}
	return openai.NewClient(requestOpts...)
}

func (s *Service) DirectAudio() bool {
	return false
}

func (s *Service) Transcribe(ctx context.Context, audioPath string) (string, error) {
	log := logging.NewLogger(ctx)

	if err := model.ValidateAudioFile(audioPath, model.MaxAudioFileSize, supportedFormats); err != nil {
		return "", utils.WrapIfNotNil(err)
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}
	defer func() {
		_ = file.Close()
	}()

	params := openai.AudioTranscriptionNewParams{
		File:           file,
		Model:          openai.AudioModel(s.audioModelName()),
		ResponseFormat: openai.AudioResponseFormatJSON,
	}
	if lang := strings.TrimSpace(s.cfg.Language); lang != "" {
		params.Language = param.NewOpt(lang)
	}

	log.Infof("audio_transcription_request provider=%q model=%q", providerName, s.audioModelName())

	response, err := s.whisper.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		log.Errorf("error: %v", err)
		return "", utils.WrapIfNotNil(err)
	}
	if response == nil {
		return "", utils.WrapIfNotNil(errors.New("audio transcriptions API returned nil response"))
	}

	transcript := strings.TrimSpace(response.Text)
	if transcript == "" {
		return "", utils.WrapIfNotNil(model.ErrEmptyTranscription)
	}
	return transcript, nil
}

func (s *Service) AnonymizeText(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", utils.WrapIfNotNil(fmt.Errorf("%w: text must be a non-empty string", model.ErrInvalidInput))
	}

	content, err := s.runChat(ctx, prompt.AnonymizerSystemMessage, text, anonymizationTemperature)
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}
	return content, nil
}

func (s *Service) Analyze(ctx context.Context, audioPath, transcript string, opts model.ChecklistOptions) (*model.AnalysisResult, error) {
	log := logging.NewLogger(ctx)

	if err := model.ValidateChecklist(opts); err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	if strings.TrimSpace(transcript) == "" {
		text, err := s.Transcribe(ctx, audioPath)
		if err != nil {
			return nil, utils.WrapIfNotNil(err)
		}
		transcript = text
	}

	instructions, err := prompt.BuildInstructions(opts.Language, opts.DoChecklist, opts.DontChecklist, transcript)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	log.Infof("analysis_request provider=%q model=%q checklist_items=%d",
		providerName, s.textModelName(), len(opts.DoChecklist))

	content, err := s.runChat(ctx, instructions.SystemMessage, instructions.Prompt, analysisTemperature)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	return &model.AnalysisResult{
		Transcription: model.StringPtr(transcript),
		Results:       model.ParseResults(content),
		Metadata:      model.NewMetadata(s.textModelName(), opts),
	}, nil
}

func (s *Service) runChat(ctx context.Context, systemMessage, userMessage string, temperature float64) (string, error) {
	completion, err := s.chat.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.textModelName()),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemMessage),
			openai.UserMessage(userMessage),
		},
		Temperature: param.NewOpt(temperature),
	})
	if err != nil {
		return "", err
	}
	if completion == nil || len(completion.Choices) == 0 {
		return "", model.ErrEmptyResponse
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return "", model.ErrEmptyResponse
	}
	return content, nil
}

func (s *Service) textModelName() string {
	if name := strings.TrimSpace(s.cfg.TextModel); name != "" {
		return name
	}
	return defaultTextModelName
}

func (s *Service) audioModelName() string {
	if name := strings.TrimSpace(s.cfg.WhisperModel); name != "" {
		return name
	}
	return defaultAudioModelName
}
