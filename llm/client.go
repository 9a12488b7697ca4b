// Package llm 定义批处理核心消费的生成服务接口与统一错误模型。
// 具体的上游实现（如 llm/gemini）只负责一次调用的成败，
// 重试、超时等策略不属于批处理层。
package llm

import (
	"context"
	"time"
)

// 统一的上游错误码，用于对齐可重试性与 HTTP 状态。
type ErrorCode string

const (
	ErrInvalidRequest      ErrorCode = "GEN_INVALID_REQUEST"      // 参数/格式错误
	ErrUnauthorized        ErrorCode = "GEN_UNAUTHORIZED"         // 密钥失效
	ErrRateLimited         ErrorCode = "GEN_RATE_LIMITED"         // 上游限流
	ErrQuotaExceeded       ErrorCode = "GEN_QUOTA_EXCEEDED"       // 配额用尽
	ErrUpstreamTimeout     ErrorCode = "GEN_UPSTREAM_TIMEOUT"     // 上游超时
	ErrUpstreamError       ErrorCode = "GEN_UPSTREAM_ERROR"       // 上游 5xx/网络错误
	ErrProviderUnavailable ErrorCode = "GEN_PROVIDER_UNAVAILABLE" // Provider 不可用
	ErrEmptyResponse       ErrorCode = "GEN_EMPTY_RESPONSE"       // 上游返回空候选
	ErrModelOverloaded     ErrorCode = "GEN_MODEL_OVERLOADED"     // 模型过载/熔断
)

// Error 是生成服务的统一错误类型。
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
}

func (e *Error) Error() string { return e.Message }

// NewError 构建一个生成服务错误。
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, Retryable: retryable(code)}
}

func retryable(code ErrorCode) bool {
	switch code {
	case ErrRateLimited, ErrUpstreamTimeout, ErrUpstreamError, ErrModelOverloaded:
		return true
	}
	return false
}

// GenerateOptions 单次生成调用的参数。
type GenerateOptions struct {
	Temperature     float32 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"max_output_tokens,omitempty"`
}

// Generator 是上游文本生成服务的窄接口。
// 实现方自行负责传输超时；批处理层不做重试。
type Generator interface {
	// Generate 用给定提示词发起一次生成调用，返回原始文本。
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	// Name 返回 Provider 名称，用于日志与指标标签。
	Name() string
}

// HealthStatus 表示一次健康检查的结果。
type HealthStatus struct {
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
}
