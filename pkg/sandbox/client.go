// Package sandbox provides a client for a disposable isolated-execution provider.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mood-mate-go/internal/config"
	"net/http"
)

// Sandbox 表示一个已创建的隔离执行环境。
type Sandbox struct {
	ID string `json:"id"`
}

// ExecResult 是沙箱内任务执行的结果：退出码与标准输出。
type ExecResult struct {
	ExitCode int    `json:"exitCode"`
	Result   string `json:"result"`
}

// Client defines the interface for the isolated-execution provider.
type Client interface {
	// Create 创建一个新的一次性沙箱，执行超时以秒为单位。
	Create(ctx context.Context, name string, timeoutSeconds int) (*Sandbox, error)
	// RunCode 在沙箱中运行一段自包含的任务源码。
	RunCode(ctx context.Context, sb *Sandbox, code string) (*ExecResult, error)
	// Delete 销毁沙箱。
	Delete(ctx context.Context, sb *Sandbox) error
}

type httpSandboxClient struct {
	cfg    config.SandboxConfig
	client *http.Client
}

// NewClient creates a new sandbox client.
// API Key 或 endpoint 缺失时返回 nil，风险升级分析被禁用。
func NewClient(cfg config.SandboxConfig) Client {
	if cfg.APIKey == "" || cfg.BaseURL == "" {
		return nil
	}
	return &httpSandboxClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

type createRequest struct {
	Name           string `json:"name"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

type runRequest struct {
	Code string `json:"code"`
}

// Create 创建一个以名称标识、带执行超时的隔离沙箱。
func (c *httpSandboxClient) Create(ctx context.Context, name string, timeoutSeconds int) (*Sandbox, error) {
	var sb Sandbox
	err := c.do(ctx, "POST", "/api/sandbox", createRequest{Name: name, TimeoutSeconds: timeoutSeconds}, &sb)
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox %s: %w", name, err)
	}
	if sb.ID == "" {
		return nil, fmt.Errorf("sandbox api returned empty sandbox id for %s", name)
	}
	return &sb, nil
}

// RunCode 提交任务源码并等待执行结束。
func (c *httpSandboxClient) RunCode(ctx context.Context, sb *Sandbox, code string) (*ExecResult, error) {
	var result ExecResult
	path := fmt.Sprintf("/api/sandbox/%s/code-run", sb.ID)
	if err := c.do(ctx, "POST", path, runRequest{Code: code}, &result); err != nil {
		return nil, fmt.Errorf("failed to run code in sandbox %s: %w", sb.ID, err)
	}
	return &result, nil
}

// Delete 销毁沙箱。
func (c *httpSandboxClient) Delete(ctx context.Context, sb *Sandbox) error {
	path := fmt.Sprintf("/api/sandbox/%s", sb.ID)
	if err := c.do(ctx, "DELETE", path, nil, nil); err != nil {
		return fmt.Errorf("failed to delete sandbox %s: %w", sb.ID, err)
	}
	return nil
}

// do 执行一次带认证的 JSON 请求，out 为 nil 时忽略响应体。
func (c *httpSandboxClient) do(ctx context.Context, method, path string, in interface{}, out interface{}) error {
	var body io.Reader
	if in != nil {
		reqBytes, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(reqBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call sandbox api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sandbox api returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode sandbox response: %w", err)
		}
	}
	return nil
}
