/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖 HTTP 层、
批处理核心与结果缓存三个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标。构造时显式
传入 Registerer（生产环境用独立 Registry 暴露在 /metrics，测试
环境用 prometheus.NewRegistry() 隔离），通过 promauto.With 完成
注册。所有指标按 namespace 隔离。

# 主要能力

  - HTTP 指标：请求总数与耗时，按 method/path/status 分组。
  - 批处理指标：去重命中率、flush 触发原因、子批规模与 Token
    预算占用、上游调用模式（single/combined/fallback）、合并响应
    切分结局、派发结果与兜底替换计数。
  - 缓存指标：best-effort 结果缓存的写失败计数。
*/
package metrics
