package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/outfitlab/outfitflow/api/handlers"
	"github.com/outfitlab/outfitflow/batch"
	"github.com/outfitlab/outfitflow/cache"
	"github.com/outfitlab/outfitflow/config"
	"github.com/outfitlab/outfitflow/internal/database"
	"github.com/outfitlab/outfitflow/internal/metrics"
	"github.com/outfitlab/outfitflow/internal/server"
	"github.com/outfitlab/outfitflow/internal/telemetry"
	"github.com/outfitlab/outfitflow/llm/gemini"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 OutfitFlow 的主服务器
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// 核心组件
	processor *batch.Processor
	store     cache.Store
	dbPool    *database.Pool
	provider  *gemini.Provider

	// Handlers
	healthHandler *handlers.HealthHandler
	outfitHandler *handlers.OutfitHandler

	// 指标
	registry         *prometheus.Registry
	metricsCollector *metrics.Collector

	// 遥测
	otelProviders *telemetry.Providers

	// Rate limiter 生命周期管理
	rateLimiterCancel context.CancelFunc
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger, otelProviders *telemetry.Providers) *Server {
	return &Server{
		cfg:           cfg,
		logger:        logger,
		otelProviders: otelProviders,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start() error {
	// 1. 初始化指标收集器
	s.registry = prometheus.NewRegistry()
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.metricsCollector = metrics.NewCollector("outfitflow", s.registry, s.logger)

	// 2. 初始化缓存后端
	if err := s.initStore(); err != nil {
		return fmt.Errorf("failed to init cache store: %w", err)
	}

	// 3. 初始化批处理器
	if err := s.initProcessor(); err != nil {
		return fmt.Errorf("failed to init batch processor: %w", err)
	}

	// 4. 初始化 Handlers
	s.initHandlers()

	// 5. 启动 HTTP 服务器
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// 6. 启动 Metrics 服务器
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.String("cache_backend", s.cfg.Cache.Backend),
	)

	return nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initStore 按配置选择结果缓存后端
func (s *Server) initStore() error {
	switch s.cfg.Cache.Backend {
	case "redis":
		store, err := cache.NewRedisStore(cache.RedisConfig{
			Addr:         s.cfg.Redis.Addr,
			Password:     s.cfg.Redis.Password,
			DB:           s.cfg.Redis.DB,
			DefaultTTL:   s.cfg.Cache.DefaultTTL,
			PoolSize:     s.cfg.Redis.PoolSize,
			MinIdleConns: s.cfg.Redis.MinIdleConns,
		}, s.logger)
		if err != nil {
			return err
		}
		s.store = store

	case "postgres":
		db, err := openDatabase(s.cfg.Database, s.logger)
		if err != nil {
			return err
		}
		poolCfg := database.DefaultPoolConfig()
		if s.cfg.Database.MaxOpenConns > 0 {
			poolCfg.MaxOpenConns = s.cfg.Database.MaxOpenConns
		}
		if s.cfg.Database.MaxIdleConns > 0 {
			poolCfg.MaxIdleConns = s.cfg.Database.MaxIdleConns
		}
		pool, err := database.NewPool(db, poolCfg, s.logger)
		if err != nil {
			return err
		}
		s.dbPool = pool
		store, err := cache.NewGormStore(db, s.logger)
		if err != nil {
			return err
		}
		s.store = store

	case "memory":
		s.store = cache.NewMemoryStore()

	case "none", "":
		// 无缓存层：命中判定只依赖在途 pending 表
		s.store = nil

	default:
		return fmt.Errorf("unknown cache backend: %s", s.cfg.Cache.Backend)
	}

	return nil
}

// initProcessor 初始化批处理器与上游 Provider
func (s *Server) initProcessor() error {
	if s.cfg.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key not configured")
	}

	s.provider = gemini.NewProvider(gemini.Config{
		APIKey:  s.cfg.LLM.APIKey,
		BaseURL: s.cfg.LLM.BaseURL,
		Model:   s.cfg.LLM.Model,
		Timeout: s.cfg.LLM.Timeout,
	}, s.logger)

	processor, err := batch.NewProcessor(batch.Config{
		FlushDelay:      s.cfg.Batch.FlushDelay,
		SizeCap:         s.cfg.Batch.SizeCap,
		MaxBatchSize:    s.cfg.Batch.MaxBatchSize,
		TokenBudget:     s.cfg.Batch.TokenBudget,
		Model:           s.cfg.LLM.Model,
		Temperature:     float32(s.cfg.Batch.Temperature),
		MaxOutputTokens: s.cfg.Batch.MaxOutputTokens,
	}, s.provider, s.store, s.logger)
	if err != nil {
		return err
	}

	s.processor = processor.WithMetrics(s.metricsCollector)
	return nil
}

// initHandlers 初始化所有 handlers
func (s *Server) initHandlers() {
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.healthHandler.RegisterCheck(handlers.NewPingCheck("gemini", func(ctx context.Context) error {
		_, err := s.provider.HealthCheck(ctx)
		return err
	}))
	if s.dbPool != nil {
		s.healthHandler.RegisterCheck(handlers.NewPingCheck("database", s.dbPool.Ping))
	}

	s.outfitHandler = handlers.NewOutfitHandler(s.processor, s.logger).
		WithMetrics(s.metricsCollector)

	s.logger.Info("Handlers initialized")
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// startHTTPServer 启动 HTTP 服务器
func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	// 健康检查端点
	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// API 路由
	mux.HandleFunc("/api/v1/outfits/suggest", s.outfitHandler.HandleSuggest)
	mux.HandleFunc("/api/v1/outfits/analyze", s.outfitHandler.HandleAnalyze)
	mux.HandleFunc("/api/v1/outfits/occasion", s.outfitHandler.HandleOccasion)

	// 构建中间件链
	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel
	handler := Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(),
		RequestLogger(s.logger),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(rateLimiterCtx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
	)

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20, // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)

	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

// startMetricsServer 启动 Metrics 服务器
func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)

	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号并优雅关闭
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx := context.Background()

	// 0. 停止 rate limiter 清理 goroutine
	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	// 1. 先停 HTTP 入口，不再接收新请求
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	// 2. 关闭批处理器：排空在途请求并完成最后一次派发
	if s.processor != nil {
		if err := s.processor.Close(); err != nil {
			s.logger.Error("Batch processor shutdown error", zap.Error(err))
		}
	}

	// 3. 关闭缓存后端
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("Cache store shutdown error", zap.Error(err))
		}
	}
	if s.dbPool != nil {
		if err := s.dbPool.Close(); err != nil {
			s.logger.Error("Database pool shutdown error", zap.Error(err))
		}
	}

	// 4. 关闭 Metrics 服务器
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	// 5. 关闭遥测
	if s.otelProviders != nil {
		if err := s.otelProviders.Shutdown(ctx); err != nil {
			s.logger.Error("Telemetry shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("Graceful shutdown completed")
}
