// Package ctxkeys 定义请求链路上下文值的类型安全存取。
// HTTP 中间件写入，下游的 handler 与日志读取。
package ctxkeys

import "context"

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	ownerKey     contextKey = "owner"
)

// WithRequestID 设置请求 ID
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID 获取请求 ID
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(requestIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithOwner 设置请求归属用户
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey, owner)
}

// Owner 获取请求归属用户
func Owner(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ownerKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
