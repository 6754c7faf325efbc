package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/callsight-ai/callsight/internal/utils"
)

const defaultHTTPTimeout = 90 * time.Second

type apiClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	InputAudio *inputAudio `json:"input_audio,omitempty"`
}

type inputAudio struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type fileUploadResponse struct {
	ID string `json:"id"`
}

type signedURLResponse struct {
	URL string `json:"url"`
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

type apiErrorResponse struct {
	Message string `json:"message"`
	Error   struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func newAPIClient(cfg Config) (*apiClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, utils.WrapIfNotNil(errors.New("api key is required (set MISTRAL_API_KEY)"))
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	endpoint = strings.TrimSuffix(endpoint, "/")

	return &apiClient{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		endpoint:   endpoint,
		apiKey:     apiKey,
	}, nil
}

// uploadFile streams the audio to the files endpoint (purpose=audio) and
// returns the opaque file id.
func (c *apiClient) uploadFile(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}
	defer func() {
		_ = file.Close()
	}()

	body := bytes.Buffer{}
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("purpose", "audio"); err != nil {
		return "", utils.WrapIfNotNil(err)
	}
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", utils.WrapIfNotNil(err)
	}
	if err := writer.Close(); err != nil {
		return "", utils.WrapIfNotNil(err)
	}

	uploaded := fileUploadResponse{}
	err = c.do(ctx, http.MethodPost, "/files", &body, writer.FormDataContentType(), &uploaded)
	if err != nil {
		return "", err
	}
	return uploaded.ID, nil
}

// signedURL exchanges a file id for a time-bounded download URL.
func (c *apiClient) signedURL(ctx context.Context, fileID string) (string, error) {
	signed := signedURLResponse{}
	path := fmt.Sprintf("/files/%s/url?expiry=%d", fileID, signedURLExpiryHours)
	if err := c.do(ctx, http.MethodGet, path, nil, "", &signed); err != nil {
		return "", err
	}
	return signed.URL, nil
}

// createTranscription submits a signed URL to the transcription endpoint.
func (c *apiClient) createTranscription(ctx context.Context, signedURL, modelName string) (string, error) {
	body := bytes.Buffer{}
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("file_url", signedURL); err != nil {
		return "", utils.WrapIfNotNil(err)
	}
	if err := writer.WriteField("model", modelName); err != nil {
		return "", utils.WrapIfNotNil(err)
	}
	if err := writer.Close(); err != nil {
		return "", utils.WrapIfNotNil(err)
	}

	transcribed := transcriptionResponse{}
	err := c.do(ctx, http.MethodPost, "/audio/transcriptions", &body, writer.FormDataContentType(), &transcribed)
	if err != nil {
		return "", err
	}
	return transcribed.Text, nil
}

func (c *apiClient) createChatCompletion(ctx context.Context, request chatCompletionRequest) (*chatCompletionResponse, error) {
	requestBits, err := json.Marshal(request)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	response := chatCompletionResponse{}
	err = c.do(ctx, http.MethodPost, "/chat/completions", bytes.NewReader(requestBits), "application/json", &response)
	if err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, body io.Reader, contentType string, target any) error {
	httpRequest, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return utils.WrapIfNotNil(err)
	}
	httpRequest.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpRequest.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpRequest.Header.Set("Content-Type", contentType)
	}

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return utils.WrapIfNotNil(err)
	}
	defer httpResponse.Body.Close()

	responseBits, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return utils.WrapIfNotNil(err)
	}

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		apiErr := apiErrorResponse{}
		message := strings.TrimSpace(string(responseBits))
		if unmarshalErr := json.Unmarshal(responseBits, &apiErr); unmarshalErr == nil {
			if candidate := strings.TrimSpace(apiErr.Error.Message); candidate != "" {
				message = candidate
			} else if candidate := strings.TrimSpace(apiErr.Message); candidate != "" {
				message = candidate
			}
		}
		if message == "" {
			message = "unknown mistral error"
		}
		return utils.WrapIfNotNil(fmt.Errorf("mistral API error (%d): %s", httpResponse.StatusCode, message))
	}

	if err := json.Unmarshal(responseBits, target); err != nil {
		return utils.WrapIfNotNil(err)
	}
	return nil
}
