/*
Package handlers 提供 OutfitFlow HTTP API 的请求处理器实现。

# 概述

handlers 包实现了 OutfitFlow 所有 HTTP 端点的请求处理逻辑，
包括穿搭建议提交、健康检查以及统一的响应/错误处理。
所有 Handler 均遵循标准 net/http 接口。

# 核心类型

  - OutfitHandler    — 穿搭建议处理器（suggest / analyze / occasion）
  - HealthHandler    — 服务健康检查（/health, /ready, /version）
  - Response         — 统一 JSON 响应结构（success + data + error + timestamp）
  - ErrorInfo        — 结构化错误信息，含 code、message、retryable 标记
  - ResponseWriter   — 包装 http.ResponseWriter 以捕获状态码
  - HealthCheck      — 可插拔健康检查接口（Redis、数据库等）

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteJSON 辅助函数
  - 请求验证：DecodeJSONBody（严格模式，拒绝未知字段）
  - llm.ErrorCode → HTTP 状态码自动映射（4xx/5xx）
  - 穿搭请求经 Submitter 进入批处理器，同一 HTTP 请求内同步等待结果
  - 可扩展健康检查：RegisterCheck 注册自定义 HealthCheck 实现
*/
package handlers
