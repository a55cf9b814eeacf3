// Package embedding provides clients for turning text into vectors.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ai-research-go/internal/config"
	"ai-research-go/pkg/log"
)

// Client defines the interface for an embedding client.
// EmbedBatch 保证输出与输入一一对应且顺序一致；空输入返回空输出。
type Client interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// BackendError 表示远端 Embedding 服务调用失败。
// 远端失败不做本地降级：同一批向量必须来自同一个向量空间。
type BackendError struct {
	Err error
}

func (e *BackendError) Error() string { return fmt.Sprintf("embedding backend: %v", e.Err) }
func (e *BackendError) Unwrap() error { return e.Err }

// NewClient 根据配置选择策略：配置了 API Key 则使用远端服务，
// 否则使用本地确定性哈希向量。
func NewClient(cfg config.EmbeddingConfig) Client {
	if cfg.APIKey == "" {
		log.Info("[EmbeddingClient] 未配置 API Key, 使用本地确定性哈希向量")
		return NewHashEmbedder(cfg.Dimensions)
	}
	return &openAICompatibleClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

type openAICompatibleClient struct {
	cfg    config.EmbeddingConfig
	client *http.Client
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedBatch calls the OpenAI-compatible API with the whole batch in one request.
func (c *openAICompatibleClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	log.Infof("[EmbeddingClient] 开始调用 Embedding API, model: %s, batch: %d", c.cfg.Model, len(texts))
	reqBody := embeddingRequest{
		Model:      c.cfg.Model,
		Input:      texts,
		Dimensions: c.cfg.Dimensions,
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/embeddings", bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("[EmbeddingClient] 调用 Embedding API 失败, error: %v", err)
		return nil, &BackendError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Errorf("[EmbeddingClient] Embedding API 返回非 200 状态码: %s", resp.Status)
		return nil, &BackendError{Err: fmt.Errorf("non-200 status: %s", resp.Status)}
	}

	var embeddingResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingResp); err != nil {
		log.Errorf("[EmbeddingClient] 解析 Embedding API 响应失败, error: %v", err)
		return nil, &BackendError{Err: fmt.Errorf("decode response: %w", err)}
	}

	if len(embeddingResp.Data) != len(texts) {
		log.Errorf("[EmbeddingClient] Embedding API 返回数量不匹配: 期望 %d, 实际 %d", len(texts), len(embeddingResp.Data))
		return nil, &BackendError{Err: fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embeddingResp.Data))}
	}

	vectors := make([][]float32, len(embeddingResp.Data))
	for i, item := range embeddingResp.Data {
		vectors[i] = item.Embedding
	}

	log.Infof("[EmbeddingClient] 成功从 Embedding API 获取 %d 个向量, 维度: %d", len(vectors), len(vectors[0]))
	return vectors, nil
}
