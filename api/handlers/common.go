package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/outfitlab/outfitflow/llm"
)

// =============================================================================
// 📦 通用响应结构
// =============================================================================

// Response 统一 API 响应结构
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorInfo  `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// ErrorInfo 错误信息结构
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// =============================================================================
// 🎯 响应辅助函数
// =============================================================================

// WriteJSON 写入 JSON 响应
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	// 编码失败时响应头已写出，只能放弃
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess 写入成功响应
func WriteSuccess(w http.ResponseWriter, requestID string, data interface{}) {
	WriteJSON(w, http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: requestID,
	})
}

// WriteError 写入错误响应。llm.Error 按错误码映射状态码，
// 其他错误一律 500。
func WriteError(w http.ResponseWriter, requestID string, err error, logger *zap.Logger) {
	status := http.StatusInternalServerError
	info := &ErrorInfo{
		Code:    "INTERNAL_ERROR",
		Message: err.Error(),
	}

	var genErr *llm.Error
	if errors.As(err, &genErr) {
		info.Code = string(genErr.Code)
		info.Retryable = genErr.Retryable
		status = genErr.HTTPStatus
		if status == 0 {
			status = mapErrorCodeToHTTPStatus(genErr.Code)
		}
	}

	if logger != nil {
		logger.Error("API error",
			zap.String("request_id", requestID),
			zap.String("code", info.Code),
			zap.Int("status", status),
			zap.Bool("retryable", info.Retryable),
			zap.Error(err),
		)
	}

	WriteJSON(w, status, Response{
		Success:   false,
		Error:     info,
		Timestamp: time.Now(),
		RequestID: requestID,
	})
}

// WriteErrorMessage 写入简单错误消息
func WriteErrorMessage(w http.ResponseWriter, requestID string, status int, code, message string, logger *zap.Logger) {
	if logger != nil {
		logger.Warn("API request rejected",
			zap.String("request_id", requestID),
			zap.String("code", code),
			zap.Int("status", status),
			zap.String("message", message),
		)
	}

	WriteJSON(w, status, Response{
		Success:   false,
		Error:     &ErrorInfo{Code: code, Message: message},
		Timestamp: time.Now(),
		RequestID: requestID,
	})
}

// =============================================================================
// 🔄 错误码到 HTTP 状态码映射
// =============================================================================

func mapErrorCodeToHTTPStatus(code llm.ErrorCode) int {
	switch code {
	// 4xx 客户端错误
	case llm.ErrInvalidRequest:
		return http.StatusBadRequest
	case llm.ErrUnauthorized:
		return http.StatusUnauthorized
	case llm.ErrRateLimited:
		return http.StatusTooManyRequests
	case llm.ErrQuotaExceeded:
		return http.StatusPaymentRequired

	// 5xx 服务端错误
	case llm.ErrUpstreamTimeout:
		return http.StatusGatewayTimeout
	case llm.ErrModelOverloaded, llm.ErrProviderUnavailable:
		return http.StatusServiceUnavailable
	case llm.ErrUpstreamError, llm.ErrEmptyResponse:
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// =============================================================================
// 🛡️ 请求辅助函数
// =============================================================================

// RequestID 返回请求头里的 X-Request-ID，缺省时生成一个新的。
func RequestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}

// DecodeJSONBody 解码 JSON 请求体
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, requestID string, dst interface{}, logger *zap.Logger) bool {
	if r.Body == nil {
		WriteErrorMessage(w, requestID, http.StatusBadRequest, "INVALID_REQUEST", "request body is empty", logger)
		return false
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields() // 严格模式：拒绝未知字段

	if err := decoder.Decode(dst); err != nil {
		WriteErrorMessage(w, requestID, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body: "+err.Error(), logger)
		return false
	}

	return true
}

// =============================================================================
// 📊 响应包装器（用于捕获状态码）
// =============================================================================

// ResponseWriter 包装 http.ResponseWriter 以捕获状态码
type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
	Written    bool
}

// NewResponseWriter 创建新的 ResponseWriter
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{
		ResponseWriter: w,
		StatusCode:     http.StatusOK,
	}
}

// WriteHeader 重写 WriteHeader 以捕获状态码
func (rw *ResponseWriter) WriteHeader(code int) {
	if !rw.Written {
		rw.StatusCode = code
		rw.Written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Write 重写 Write 以标记已写入
func (rw *ResponseWriter) Write(b []byte) (int, error) {
	if !rw.Written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}
