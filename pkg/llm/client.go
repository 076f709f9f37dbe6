// Package llm provides a client for interacting with Large Language Models.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mood-mate-go/internal/config"
	"net/http"
)

// anthropicVersion 是 messages API 要求的版本头。
const anthropicVersion = "2023-06-01"

// Client defines the interface for an LLM client.
type Client interface {
	// Complete 以单条 user 消息调用模型，返回完整的文本回复。
	Complete(ctx context.Context, prompt string, gen *GenerationParams) (string, error)
}

// GenerationParams 控制生成行为，nil 字段回退到配置值。
type GenerationParams struct {
	Temperature *float64
	MaxTokens   *int
}

type anthropicClient struct {
	cfg    config.LLMConfig
	client *http.Client
}

// NewClient creates a new LLM client for the Anthropic messages API.
func NewClient(cfg config.LLMConfig) Client {
	return &anthropicClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

// message 表示一条角色消息
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature *float64  `json:"temperature,omitempty"`
	Messages    []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Complete calls the Anthropic messages API and returns the first text block.
func (c *anthropicClient) Complete(ctx context.Context, prompt string, gen *GenerationParams) (string, error) {
	reqBody := messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.Generation.MaxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	}
	if c.cfg.Generation.Temperature != 0 {
		t := c.cfg.Generation.Temperature
		reqBody.Temperature = &t
	}
	// 传参优先生效
	if gen != nil {
		if gen.Temperature != nil {
			reqBody.Temperature = gen.Temperature
		}
		if gen.MaxTokens != nil {
			reqBody.MaxTokens = *gen.MaxTokens
		}
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal messages request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/v1/messages", bytes.NewReader(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create messages request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call messages api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("messages api returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
	}

	var msgResp messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&msgResp); err != nil {
		return "", fmt.Errorf("failed to decode messages response: %w", err)
	}

	for _, block := range msgResp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("messages api returned no text content")
}
