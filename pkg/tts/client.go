// Package tts provides a client for text-to-speech synthesis.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mood-mate-go/internal/config"
	"net/http"
	"time"
)

// Client defines the interface for a text-to-speech client.
type Client interface {
	// Synthesize 将短文本合成为音频字节（mp3）。
	Synthesize(ctx context.Context, script string) ([]byte, error)
}

type elevenLabsClient struct {
	cfg    config.TTSConfig
	client *http.Client
}

// NewClient creates a new TTS client for the ElevenLabs API.
// API Key 缺失时返回 nil，语音合成功能被禁用。
func NewClient(cfg config.TTSConfig) Client {
	if cfg.APIKey == "" {
		return nil
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if cfg.TimeoutSeconds <= 0 {
		timeout = 10 * time.Second
	}
	return &elevenLabsClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize calls the ElevenLabs text-to-speech API with the fixed voice.
func (c *elevenLabsClient) Synthesize(ctx context.Context, script string) ([]byte, error) {
	reqBody := ttsRequest{
		Text:    script,
		ModelID: c.cfg.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       c.cfg.Stability,
			SimilarityBoost: c.cfg.SimilarityBoost,
		},
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tts request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.cfg.BaseURL, c.cfg.VoiceID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create tts request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call tts api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tts api returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tts response: %w", err)
	}
	return audio, nil
}
