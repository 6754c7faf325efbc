package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/callsight-ai/callsight/internal/model"
	"github.com/callsight-ai/callsight/internal/utils"
)

const (
	defaultBaseURL     = "https://router.huggingface.co"
	defaultHTTPTimeout = 90 * time.Second
)

type apiClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

type asrResponse struct {
	Text string `json:"text"`
}

type chatCompletionErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func newAPIClient(cfg Config) (*apiClient, error) {
	apiKey := strings.TrimSpace(cfg.Token)
	if apiKey == "" {
		return nil, utils.WrapIfNotNil(errors.New("auth token is required (set HF_TOKEN)"))
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &apiClient{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}, nil
}

func (c *apiClient) createChatCompletion(ctx context.Context, request chatCompletionRequest) (*chatCompletionResponse, error) {
	requestBits, err := json.Marshal(request)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	httpRequest, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/v1/chat/completions",
		bytes.NewReader(requestBits),
	)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Authorization", "Bearer "+c.apiKey)

	responseBits, err := c.send(httpRequest)
	if err != nil {
		return nil, err
	}

	response := chatCompletionResponse{}
	if err := json.Unmarshal(responseBits, &response); err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	return &response, nil
}

// automaticSpeechRecognition posts the raw audio bytes to the model's
// inference endpoint and returns the recognized text.
func (c *apiClient) automaticSpeechRecognition(ctx context.Context, audioPath, modelName string) (string, error) {
	audioBits, err := os.ReadFile(audioPath)
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}

	httpRequest, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/hf-inference/models/"+modelName,
		bytes.NewReader(audioBits),
	)
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}

	httpRequest.Header.Set("Content-Type", model.MIMEType(audioPath))
	httpRequest.Header.Set("Authorization", "Bearer "+c.apiKey)

	responseBits, err := c.send(httpRequest)
	if err != nil {
		return "", err
	}

	response := asrResponse{}
	if err := json.Unmarshal(responseBits, &response); err != nil {
		return "", utils.WrapIfNotNil(err)
	}
	return response.Text, nil
}

func (c *apiClient) send(httpRequest *http.Request) ([]byte, error) {
	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	defer httpResponse.Body.Close()

	responseBits, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		apiErr := chatCompletionErrorResponse{}
		message := strings.TrimSpace(string(responseBits))
		if unmarshalErr := json.Unmarshal(responseBits, &apiErr); unmarshalErr == nil {
			if candidate := strings.TrimSpace(apiErr.Error.Message); candidate != "" {
				message = candidate
			}
		}
		if message == "" {
			message = "unknown huggingface error"
		}
		return nil, utils.WrapIfNotNil(fmt.Errorf("huggingface API error (%d): %s", httpResponse.StatusCode, message))
	}
	return responseBits, nil
}
