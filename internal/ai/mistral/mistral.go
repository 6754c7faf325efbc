package mistral

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/callsight-ai/callsight/internal/logging"
	"github.com/callsight-ai/callsight/internal/model"
	"github.com/callsight-ai/callsight/internal/prompt"
	"github.com/callsight-ai/callsight/internal/utils"
)

const (
	providerName          = "mistral"
	defaultAudioModelName = "voxtral-mini-latest"
	defaultTextModelName  = "mistral-small-2506"
	defaultEndpoint       = "https://api.mistral.ai/v1"

	// signedURLExpiryHours bounds the lifetime of the URL exchanged for an
	// uploaded file id before it is submitted for transcription or analysis.
	signedURLExpiryHours = 24
)

// The files endpoint only takes mp3 uploads.
var supportedFormats = []string{"mp3"}

type Config struct {
	APIKey     string
	Endpoint   string
	AudioModel string
	TextModel  string

	// IncludeTranscription switches analysis from the direct-audio flow to
	// transcribe-then-chat against the text model.
	IncludeTranscription bool
}

// Service satisfies Transcriber, Analyzer, and Anonymizer against the
// Mistral API. Audio reaches the model through a three-step flow — upload,
// signed URL, submit — and each step is a distinct failure domain carrying
// its own error context.
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
	return !s.cfg.IncludeTranscription
}

func (s *Service) Transcribe(ctx context.Context, audioPath string) (string, error) {
	log := logging.NewLogger(ctx)

	signedURL, err := s.uploadAndSign(ctx, audioPath)
	if err != nil {
		return "", err
	}

	log.Infof("audio_transcription_request provider=%q model=%q", providerName, s.audioModelName())

	text, err := s.client.createTranscription(ctx, signedURL, s.audioModelName())
	if err != nil {
		return "", utils.WrapIfNotNil(err, "transcription request")
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

	response, err := s.client.createChatCompletion(ctx, chatCompletionRequest{
		Model: s.textModelName(),
		Messages: []chatMessage{
			{Role: "system", Content: prompt.AnonymizerSystemMessage},
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}

	content := strings.TrimSpace(messageContent(response))
	if content == "" {
		return "", utils.WrapIfNotNil(model.ErrEmptyResponse)
	}
	return content, nil
}

func (s *Service) Analyze(ctx context.Context, audioPath, transcript string, opts model.ChecklistOptions) (*model.AnalysisResult, error) {
	if err := model.ValidateChecklist(opts); err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	if s.cfg.IncludeTranscription {
		return s.analyzeWithTranscription(ctx, audioPath, transcript, opts)
	}
	return s.analyzeDirectFromAudio(ctx, audioPath, opts)
}

// analyzeDirectFromAudio bypasses transcription: one multimodal chat request
// whose user message mixes the signed audio URL and the text prompt.
func (s *Service) analyzeDirectFromAudio(ctx context.Context, audioPath string, opts model.ChecklistOptions) (*model.AnalysisResult, error) {
	log := logging.NewLogger(ctx)

	signedURL, err := s.uploadAndSign(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	instructions, err := prompt.BuildInstructions(opts.Language, opts.DoChecklist, opts.DontChecklist, "")
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	log.Infof("analysis_request provider=%q model=%q mode=direct_audio", providerName, s.audioModelName())

	response, err := s.client.createChatCompletion(ctx, chatCompletionRequest{
		Model: s.audioModelName(),
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "input_audio", InputAudio: &inputAudio{Data: signedURL, Format: "mp3"}},
					{Type: "text", Text: instructions.Prompt},
				},
			},
		},
	})
	if err != nil {
		return nil, utils.WrapIfNotNil(err, "analysis request")
	}

	content := strings.TrimSpace(messageContent(response))
	if content == "" {
		return nil, utils.WrapIfNotNil(model.ErrEmptyResponse)
	}

	return &model.AnalysisResult{
		Transcription: nil,
		Results:       model.ParseResults(content),
		Metadata:      model.NewMetadata(s.audioModelName(), opts),
	}, nil
}

// analyzeWithTranscription obtains a transcript from the provider's own
// transcription endpoint, then runs a transcript-driven chat analysis
// against the text model.
func (s *Service) analyzeWithTranscription(ctx context.Context, audioPath, transcript string, opts model.ChecklistOptions) (*model.AnalysisResult, error) {
	log := logging.NewLogger(ctx)

	if strings.TrimSpace(transcript) == "" {
		text, err := s.Transcribe(ctx, audioPath)
		if err != nil {
			return nil, err
		}
		transcript = text
	}

	instructions, err := prompt.BuildInstructions(opts.Language, opts.DoChecklist, opts.DontChecklist, transcript)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	log.Infof("analysis_request provider=%q model=%q mode=transcript", providerName, s.textModelName())

	response, err := s.client.createChatCompletion(ctx, chatCompletionRequest{
		Model: s.textModelName(),
		Messages: []chatMessage{
			{Role: "system", Content: instructions.SystemMessage},
			{Role: "user", Content: instructions.Prompt},
		},
	})
	if err != nil {
		return nil, utils.WrapIfNotNil(err, "analysis request")
	}

	content := strings.TrimSpace(messageContent(response))
	if content == "" {
		return nil, utils.WrapIfNotNil(model.ErrEmptyResponse)
	}

	return &model.AnalysisResult{
		Transcription: model.StringPtr(transcript),
		Results:       model.ParseResults(content),
		Metadata:      model.NewMetadata(s.textModelName(), opts),
	}, nil
}

// uploadAndSign validates the file locally, uploads it, and exchanges the
// returned file id for a time-bounded signed URL.
func (s *Service) uploadAndSign(ctx context.Context, audioPath string) (string, error) {
	if err := model.ValidateAudioFile(audioPath, model.MaxAudioFileSize, supportedFormats); err != nil {
		return "", utils.WrapIfNotNil(err)
	}

	fileID, err := s.client.uploadFile(ctx, audioPath)
	if err != nil {
		return "", utils.WrapIfNotNil(err, "upload audio")
	}
	if fileID == "" {
		return "", utils.WrapIfNotNil(errors.New("no file id returned"), "upload audio")
	}

	signedURL, err := s.client.signedURL(ctx, fileID)
	if err != nil {
		return "", utils.WrapIfNotNil(err, "signed url")
	}
	if signedURL == "" {
		return "", utils.WrapIfNotNil(errors.New("no signed url returned"), "signed url")
	}
	return signedURL, nil
}

func messageContent(response *chatCompletionResponse) string {
	if response == nil || len(response.Choices) == 0 {
		return ""
	}
	return response.Choices[0].Message.Content
}

func (s *Service) audioModelName() string {
	if name := strings.TrimSpace(s.cfg.AudioModel); name != "" {
		return name
	}
	return defaultAudioModelName
}

func (s *Service) textModelName() string {
	if name := strings.TrimSpace(s.cfg.TextModel); name != "" {
		return name
	}
	return defaultTextModelName
}
