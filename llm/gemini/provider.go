// Package gemini 实现基于 Google Gemini generateContent 接口的
// 文本生成 Provider。
package gemini

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

	"go.uber.org/zap"

	"github.com/outfitlab/outfitflow/llm"
)

// Config Gemini Provider 配置。
type Config struct {
	APIKey  string        `yaml:"api_key" json:"api_key"`
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Model   string        `yaml:"model" json:"model"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// Provider 实现 llm.Generator。
// Gemini API 特点：
// 1. 使用 x-goog-api-key 请求头认证
// 2. 响应按 candidates/parts 结构组织
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewProvider 创建 Gemini Provider。
func NewProvider(cfg Config, logger *zap.Logger) *Provider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}

	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "gemini")),
	}
}

func (p *Provider) Name() string { return "gemini" }

// Gemini 请求/响应结构（仅文本路径）。
type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature     float32 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason,omitempty"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata,omitempty"`
}

type geminiErrorResp struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate 实现 llm.Generator.Generate。
func (p *Provider) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	body := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
	}
	if opts.Temperature > 0 || opts.MaxOutputTokens > 0 {
		body.GenerationConfig = &geminiGenerationConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxOutputTokens,
		}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", llm.NewError(llm.ErrInvalidRequest, fmt.Sprintf("marshal gemini request: %v", err))
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(p.cfg.BaseURL, "/"), p.cfg.Model)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", llm.NewError(llm.ErrInvalidRequest, fmt.Sprintf("build gemini request: %v", err))
	}
	// Gemini 使用 x-goog-api-key 认证
	httpReq.Header.Set("x-goog-api-key", p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		code := llm.ErrUpstreamError
		if errors.Is(err, context.DeadlineExceeded) {
			code = llm.ErrUpstreamTimeout
		}
		return "", llm.NewError(code, fmt.Sprintf("gemini request failed: %v", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", llm.NewError(llm.ErrUpstreamError, fmt.Sprintf("read gemini response: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", p.mapHTTPError(resp.StatusCode, raw)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", llm.NewError(llm.ErrUpstreamError, fmt.Sprintf("decode gemini response: %v", err))
	}

	if len(parsed.Candidates) == 0 {
		return "", llm.NewError(llm.ErrEmptyResponse, "gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", llm.NewError(llm.ErrEmptyResponse, "gemini returned empty text")
	}

	fields := []zap.Field{
		zap.String("model", p.cfg.Model),
		zap.Duration("latency", time.Since(start)),
	}
	if parsed.UsageMetadata != nil {
		fields = append(fields, zap.Int("total_tokens", parsed.UsageMetadata.TotalTokenCount))
	}
	p.logger.Debug("gemini generate completed", fields...)

	return text, nil
}

// HealthCheck 检查 Gemini 端点可达性。
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	start := time.Now()
	endpoint := fmt.Sprintf("%s/v1beta/models", strings.TrimRight(p.cfg.BaseURL, "/"))
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	httpReq.Header.Set("x-goog-api-key", p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return &llm.HealthStatus{Healthy: false, Latency: latency}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &llm.HealthStatus{Healthy: false, Latency: latency},
			fmt.Errorf("gemini health check failed: status=%d", resp.StatusCode)
	}
	return &llm.HealthStatus{Healthy: true, Latency: latency}, nil
}

// mapHTTPError 将 Gemini 的 HTTP 状态映射到统一错误码。
func (p *Provider) mapHTTPError(status int, raw []byte) *llm.Error {
	msg := "gemini error"
	var errResp geminiErrorResp
	if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	var code llm.ErrorCode
	switch {
	case status == http.StatusTooManyRequests:
		code = llm.ErrRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code = llm.ErrUnauthorized
	case status == http.StatusPaymentRequired:
		code = llm.ErrQuotaExceeded
	case status == http.StatusBadRequest:
		code = llm.ErrInvalidRequest
	case status == http.StatusServiceUnavailable:
		code = llm.ErrModelOverloaded
	case status >= 500:
		code = llm.ErrUpstreamError
	default:
		code = llm.ErrUpstreamError
	}

	e := llm.NewError(code, fmt.Sprintf("gemini: %s (status=%d)", msg, status))
	e.HTTPStatus = status
	p.logger.Warn("gemini upstream error",
		zap.Int("status", status),
		zap.String("code", string(code)),
		zap.String("message", msg),
	)
	return e
}
