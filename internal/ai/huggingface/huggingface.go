package huggingface

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/callsight-ai/callsight/internal/logging"
	"github.com/callsight-ai/callsight/internal/model"
	"github.com/callsight-ai/callsight/internal/prompt"
	"github.com/callsight-ai/callsight/internal/utils"
)

const (
	providerName          = "huggingface"
	defaultTextModelName  = "Qwen/Qwen2.5-72B-Instruct"
	defaultAudioModelName = "openai/whisper-large-v3"
	analysisTemperature   = 0.2
)

var supportedFormats = []string{"mp3", "mp4", "mpeg", "mpga", "m4a", "wav", "webm"}

type Config struct {
	Token      string
	BaseURL    string
	AudioModel string
	TextModel  string
}

// Service satisfies Transcriber, Analyzer, and Anonymizer against the
// HuggingFace router: the ASR inference endpoint for transcription and chat
// completions for the text tasks. Analysis is transcript-driven.
type Service struct {
	client *apiClient
	cfg    Config
}

func New(cfg Config) (*Service, error) {
	client, err := newAPIClient(cfg)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	return &Service{client: client, cfg: cfg}, nil
}

func (s *Service) DirectAudio() bool {
	return false
}

func (s *Service) Transcribe(ctx context.Context, audioPath string) (string, error) {
	log := logging.NewLogger(ctx)

	if err := model.ValidateAudioFile(audioPath, model.MaxAudioFileSize, supportedFormats); err != nil {
		return "", utils.WrapIfNotNil(err)
	}

	log.Infof("audio_transcription_request provider=%q model=%q", providerName, s.audioModelName())

	text, err := s.client.automaticSpeechRecognition(ctx, audioPath, s.audioModelName())
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}

	transcript := strings.TrimSpace(text)
	if transcript == "" {
		return "", utils.WrapIfNotNil(model.ErrEmptyTranscription)
	}
	return transcript, nil
}

func (s *Service) AnonymizeText(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", utils.WrapIfNotNil(fmt.Errorf("%w: text must be a non-empty string", model.ErrInvalidInput))
	}

	content, err := s.runChat(ctx, []chatMessage{
		{Role: "system", Content: prompt.AnonymizerSystemMessage},
		{Role: "user", Content: text},
	})
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

	// Open models drift on output format more than the hosted APIs; pin the
	// expected shape with a schema generated from the report type itself.
	schemaInstruction, err := structuredOutputInstruction()
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	log.Infof("analysis_request provider=%q model=%q checklist_items=%d",
		providerName, s.textModelName(), len(opts.DoChecklist))

	content, err := s.runChat(ctx, []chatMessage{
		{Role: "system", Content: instructions.SystemMessage},
		{Role: "system", Content: schemaInstruction},
		{Role: "user", Content: instructions.Prompt},
	})
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	return &model.AnalysisResult{
		Transcription: model.StringPtr(transcript),
		Results:       model.ParseResults(content),
		Metadata:      model.NewMetadata(s.textModelName(), opts),
	}, nil
}

func (s *Service) runChat(ctx context.Context, messages []chatMessage) (string, error) {
	temperature := analysisTemperature
	response, err := s.client.createChatCompletion(ctx, chatCompletionRequest{
		Model:       s.textModelName(),
		Messages:    messages,
		Temperature: &temperature,
	})
	if err != nil {
		return "", err
	}
	if response == nil || len(response.Choices) == 0 {
		return "", model.ErrEmptyResponse
	}

	content := strings.TrimSpace(response.Choices[0].Message.Content)
	if content == "" {
		return "", model.ErrEmptyResponse
	}
	return content, nil
}

func structuredOutputInstruction() (string, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(model.ComplianceReport{})

	schemaBits, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}
	return "Return ONLY valid JSON matching this schema. Do not include markdown fences.\n" + string(schemaBits), nil
}

func (s *Service) textModelName() string {
	if name := strings.TrimSpace(s.cfg.TextModel); name != "" {
		return name
	}
	return defaultTextModelName
}

func (s *Service) audioModelName() string {
	if name := strings.TrimSpace(s.cfg.AudioModel); name != "" {
		return name
	}
	return defaultAudioModelName
}
