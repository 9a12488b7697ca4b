/*
Package main 提供 OutfitFlow 服务端程序入口。

# 概述

cmd/outfitflow 是穿搭建议后端的可执行入口，提供 HTTP API 服务、
健康检查和版本查询等子命令。程序支持 YAML 配置文件加载、
结构化日志（zap）、Prometheus 指标采集以及 OpenTelemetry 链路追踪。

# 核心类型

  - Server     — 主服务器，管理 HTTP、Metrics 双端口及优雅关闭
  - Middleware — HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 子命令：serve（启动服务）、version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、OTelTracing、
    RequestLogger、CORS、RateLimiter（基于 IP）
  - 缓存后端选择：redis / postgres / memory / none
  - Metrics 服务器：独立端口暴露 /metrics（Prometheus）
  - 优雅关闭：信号监听 → 关 HTTP → 排空批处理器 → 关缓存 → 关 Metrics
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
