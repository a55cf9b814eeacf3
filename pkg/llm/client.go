// Package llm provides a client for interacting with Large Language Models.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-research-go/internal/config"
)

// Client defines the interface for an LLM client.
type Client interface {
	// Generate 以单轮对话的方式调用模型：全部上下文都包含在 prompt 内。
	Generate(ctx context.Context, prompt string) (string, error)
	// Configured 报告是否配置了真实的生成后端。
	// 未配置时问答走本地降级策略，相似度下限也随之关闭。
	Configured() bool
}

// BackendError 表示远端生成服务调用失败。
type BackendError struct {
	Err error
}

func (e *BackendError) Error() string { return fmt.Sprintf("llm backend: %v", e.Err) }
func (e *BackendError) Unwrap() error { return e.Err }

type openAICompatibleClient struct {
	cfg    config.LLMConfig
	client *http.Client
}

// NewClient creates a new LLM client from the configuration.
func NewClient(cfg config.LLMConfig) Client {
	return &openAICompatibleClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *openAICompatibleClient) Configured() bool {
	return c.cfg.APIKey != ""
}

// Generate calls the OpenAI-compatible chat completions API with a single user message.
func (c *openAICompatibleClient) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model:    c.cfg.Model,
		Messages: []Message{{Role: "user", Content: prompt}},
	}
	// 低温度偏向贴合引用来源的稳定措辞
	if c.cfg.Temperature != 0 {
		t := c.cfg.Temperature
		reqBody.Temperature = &t
	}
	if c.cfg.MaxTokens != 0 {
		m := c.cfg.MaxTokens
		reqBody.MaxTokens = &m
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/chat/completions", bytes.NewReader(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &BackendError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", &BackendError{Err: fmt.Errorf("non-200 status: %s, body: %s", resp.Status, string(bodyBytes))}
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", &BackendError{Err: fmt.Errorf("decode response: %w", err)}
	}

	if len(chat.Choices) == 0 {
		return "", &BackendError{Err: fmt.Errorf("empty choices in response")}
	}

	return strings.TrimSpace(chat.Choices[0].Message.Content), nil
}
