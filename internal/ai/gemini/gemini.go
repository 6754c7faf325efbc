package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/callsight-ai/callsight/internal/logging"
	"github.com/callsight-ai/callsight/internal/model"
	"github.com/callsight-ai/callsight/internal/prompt"
	"github.com/callsight-ai/callsight/internal/utils"
)

const (
	providerName     = "gemini"
	defaultModelName = "gemini-2.5-flash"

	transcriptionPrompt = "Transcribe this audio accurately. Return only the transcript text."
)

var supportedFormats = []string{"mp3", "mp4", "mpeg", "mpga", "m4a", "wav", "webm"}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Service satisfies Transcriber, Analyzer, and Anonymizer against the Gemini
// API. Audio is inlined as bytes with its MIME type; analysis is
// direct-audio, mixing the audio part and the text prompt in one request.
type Service struct {
	cfg Config
}

func New(cfg Config) (*Service, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, utils.WrapIfNotNil(errors.New("api key is required (set GEMINI_KEY)"))
	}
	return &Service{cfg: cfg}, nil
}

func (s *Service) DirectAudio() bool {
	return true
}

func (s *Service) Transcribe(ctx context.Context, audioPath string) (string, error) {
	log := logging.NewLogger(ctx)

	log.Infof("audio_transcription_request provider=%q model=%q", providerName, s.modelName())

	text, err := s.generateFromAudio(ctx, audioPath, transcriptionPrompt)
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

	client, err := s.newAPIClient(ctx)
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}
	response, err := client.Models.GenerateContent(ctx, s.modelName(), contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.AnonymizerSystemMessage, genai.RoleUser),
	})
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}

	anonymized := strings.TrimSpace(response.Text())
	if anonymized == "" {
		return "", utils.WrapIfNotNil(model.ErrEmptyResponse)
	}
	return anonymized, nil
}

func (s *Service) Analyze(ctx context.Context, audioPath, _ string, opts model.ChecklistOptions) (*model.AnalysisResult, error) {
	log := logging.NewLogger(ctx)

	if err := model.ValidateChecklist(opts); err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	instructions, err := prompt.BuildInstructions(opts.Language, opts.DoChecklist, opts.DontChecklist, "")
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	log.Infof("analysis_request provider=%q model=%q mode=direct_audio", providerName, s.modelName())

	content, err := s.generateFromAudio(ctx, audioPath, instructions.Prompt)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	if strings.TrimSpace(content) == "" {
		return nil, utils.WrapIfNotNil(model.ErrEmptyResponse)
	}

	return &model.AnalysisResult{
		Transcription: nil,
		Results:       model.ParseResults(content),
		Metadata:      model.NewMetadata(s.modelName(), opts),
	}, nil
}

func (s *Service) generateFromAudio(ctx context.Context, audioPath, textPrompt string) (string, error) {
	if err := model.ValidateAudioFile(audioPath, model.MaxAudioFileSize, supportedFormats); err != nil {
		return "", err
	}

	audioBits, err := os.ReadFile(audioPath)
	if err != nil {
		return "", err
	}

	client, err := s.newAPIClient(ctx)
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(
			[]*genai.Part{
				genai.NewPartFromText(textPrompt),
				genai.NewPartFromBytes(audioBits, model.MIMEType(audioPath)),
			},
			genai.RoleUser,
		),
	}

	response, err := client.Models.GenerateContent(ctx, s.modelName(), contents, &genai.GenerateContentConfig{})
	if err != nil {
		return "", err
	}
	return response.Text(), nil
}

func (s *Service) newAPIClient(ctx context.Context) (*genai.Client, error) {
	clientCfg := &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  strings.TrimSpace(s.cfg.APIKey),
	}
	if baseURL := strings.TrimSpace(s.cfg.BaseURL); baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	return genai.NewClient(ctx, clientCfg)
}

func (s *Service) modelName() string {
	if name := strings.TrimSpace(s.cfg.Model); name != "" {
		return name
	}
	return defaultModelName
}
