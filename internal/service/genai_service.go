package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nextrole_backend/internal/config"
)

// TextGenerator 远端文本生成的抽象，便于在测试中替换
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenAIService 对接 OpenAI 兼容的 chat/completions 接口
type GenAIService struct {
	config config.AIConfig
	client *http.Client
}

func NewGenAIService(cfg config.AIConfig) *GenAIService {
	return &GenAIService{
		config: cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

type aiChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string          `json:"model"`
	Messages []aiChatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message aiChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// apiError 保留状态码，限流识别依赖它
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("AI API error (status %d): %s", e.status, e.body)
}

// IsQuotaError 判断是否为配额/限流类错误（429 或错误文本携带配额标记）
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	var ae *apiError
	if errors.As(err, &ae) && ae.status == http.StatusTooManyRequests {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "Quota") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

func (s *GenAIService) Generate(ctx context.Context, prompt string) (string, error) {
	messages := []aiChatMessage{
		{
			Role:    "system",
			Content: "You are a course generation engine. Respond with a single valid JSON object and nothing else.",
		},
		{
			Role:    "user",
			Content: prompt,
		},
	}

	reqBody := chatCompletionRequest{
		Model:    s.config.Model,
		Messages: messages,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", &apiError{status: resp.StatusCode, body: string(body)}
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}

	if result.Error != nil {
		return "", fmt.Errorf("AI API error: %s", result.Error.Message)
	}

	if len(result.Choices) > 0 {
		return result.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("AI returned no choices")
}
