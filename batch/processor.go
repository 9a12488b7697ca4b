package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/outfitlab/outfitflow/cache"
	"github.com/outfitlab/outfitflow/internal/metrics"
	"github.com/outfitlab/outfitflow/llm"
	"github.com/outfitlab/outfitflow/llm/tokenizer"
	"github.com/outfitlab/outfitflow/outfit"
)

var (
	// ErrClosed 处理器已关闭。
	ErrClosed = errors.New("batch processor closed")
)

// State 调度状态机的状态。
type State int32

const (
	// StateIdle 没有在途工作，没有定时器。
	StateIdle State = iota
	// StateAccumulating 定时器已起，等待更多请求或超时。
	StateAccumulating
	// StateFlushing 排空与派发进行中，重入被阻止。
	StateFlushing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAccumulating:
		return "accumulating"
	case StateFlushing:
		return "flushing"
	default:
		return "unknown"
	}
}

// Config 批处理器配置。
type Config struct {
	// FlushDelay 累积窗口时长，窗口到期即 flush。
	FlushDelay time.Duration `yaml:"flush_delay" json:"flush_delay"`
	// SizeCap 在途记录数达到该值时立即 flush。
	SizeCap int `yaml:"size_cap" json:"size_cap"`
	// MaxBatchSize 单个子批的记录数上限。
	MaxBatchSize int `yaml:"max_batch_size" json:"max_batch_size"`
	// TokenBudget 单个子批的估算 Token 预算。
	TokenBudget int `yaml:"token_budget" json:"token_budget"`
	// Model 仅用于选择 Token 计数器。
	Model string `yaml:"model" json:"model"`
	// Temperature/MaxOutputTokens 透传给上游调用。
	Temperature     float32 `yaml:"temperature" json:"temperature"`
	MaxOutputTokens int     `yaml:"max_output_tokens" json:"max_output_tokens"`
}

// DefaultConfig 返回合理的默认值。
func DefaultConfig() Config {
	return Config{
		FlushDelay:      2 * time.Second,
		SizeCap:         8,
		MaxBatchSize:    5,
		TokenBudget:     6000,
		Temperature:     0.7,
		MaxOutputTokens: 1024,
	}
}

// Processor 是批处理核心的对外门面。进程内应只有一个实例，
// 由组合根显式构造、注入 handler 并在退出时 Close 排空。
type Processor struct {
	cfg    Config
	gen    llm.Generator
	store  cache.Store // 可为 nil：无缓存层
	est    *costEstimator
	logger *zap.Logger

	table   *PendingTable
	metrics *metrics.Collector // 可为 nil

	// mu 保护状态机与定时器；从不跨上游 I/O 持有。
	mu     sync.Mutex
	state  State
	timer  *time.Timer
	closed bool

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewProcessor 创建批处理器。store 可为 nil（关闭缓存层）。
func NewProcessor(cfg Config, gen llm.Generator, store cache.Store, logger *zap.Logger) (*Processor, error) {
	if gen == nil {
		return nil, fmt.Errorf("batch: generator is required")
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = 2 * time.Second
	}
	if cfg.SizeCap <= 0 {
		cfg.SizeCap = 8
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 5
	}
	if cfg.TokenBudget <= 0 {
		cfg.TokenBudget = 6000
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Processor{
		cfg:     cfg,
		gen:     gen,
		store:   store,
		est:     newCostEstimator(tokenizer.ForModel(cfg.Model)),
		logger:  logger.With(zap.String("component", "batch")),
		table:   NewPendingTable(),
		state:   StateIdle,
		baseCtx: ctx,
		cancel:  cancel,
	}, nil
}

// WithMetrics 挂接指标收集器。
func (p *Processor) WithMetrics(c *metrics.Collector) *Processor {
	p.metrics = c
	return p
}

// State 返回当前调度状态（用于测试与健康检查）。
func (p *Processor) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Pending 返回在途记录数。
func (p *Processor) Pending() int {
	return p.table.Size()
}

// Submit 提交一个生成请求并阻塞等待结果。语义相同的并发请求
// 会合并为一次上游调用，每个调用方都拿到同一份结果内容。
// 调用方的 ctx 取消只代表它放弃等待：记录由其余等待者共享，
// 不会因此被破坏。
func (p *Processor) Submit(ctx context.Context, req Request) (*outfit.Result, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("batch: unknown request kind %q", req.Kind)
	}
	if req.Priority == "" {
		req.Priority = PriorityMedium
	}
	if !req.Priority.Valid() {
		return nil, fmt.Errorf("batch: unknown priority %q", req.Priority)
	}

	// 入队与状态迁移在同一临界区内完成，enqueue 不会与 Close
	// 的最终排空竞争丢失等待者。
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	fp, w, hit := p.table.Enqueue(req)
	p.scheduleLocked(req.Priority)
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.RecordDedup(hit)
	}
	p.logger.Debug("request enqueued",
		zap.String("fingerprint", fp),
		zap.String("kind", string(req.Kind)),
		zap.String("priority", string(req.Priority)),
		zap.Bool("dedup_hit", hit),
	)

	select {
	case out := <-w:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// scheduleLocked 处理一次入队引发的状态迁移。调用方持有 p.mu。
func (p *Processor) scheduleLocked(prio Priority) {
	immediate := prio == PriorityHigh || p.table.Size() >= p.cfg.SizeCap
	trigger := "priority"
	if prio != PriorityHigh {
		trigger = "size"
	}

	switch p.state {
	case StateIdle:
		if immediate {
			p.beginFlushLocked(trigger)
			return
		}
		p.state = StateAccumulating
		p.timer = time.AfterFunc(p.cfg.FlushDelay, p.onTimer)

	case StateAccumulating:
		if immediate {
			if p.timer != nil {
				p.timer.Stop()
				p.timer = nil
			}
			p.beginFlushLocked(trigger)
		}

	case StateFlushing:
		// flush 进行中，新到达的请求留给下一个周期，
		// 绝不注入正在执行的批。
	}
}

// onTimer 累积窗口到期。
func (p *Processor) onTimer() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.state != StateAccumulating {
		return
	}
	p.timer = nil
	p.beginFlushLocked("timer")
}

// beginFlushLocked 进入 FLUSHING 并异步执行。调用方持有 p.mu。
func (p *Processor) beginFlushLocked(trigger string) {
	p.state = StateFlushing
	p.wg.Add(1)
	go p.flush(trigger)
}

// flush 排空表、分组、并发执行各子批，最后完成状态回迁。
// 表锁在排空后立即释放，上游 I/O 全程不持锁。
func (p *Processor) flush(trigger string) {
	defer p.wg.Done()

	records := p.table.DrainForFlush()
	if p.metrics != nil {
		p.metrics.RecordFlush(trigger)
	}

	if len(records) > 0 {
		subs := groupRecords(records, p.cfg, p.est)
		p.logger.Debug("flush started",
			zap.String("trigger", trigger),
			zap.Int("records", len(records)),
			zap.Int("sub_batches", len(subs)),
		)
		p.executeAll(p.baseCtx, subs)
	}

	// 状态回迁：flush 期间到达的请求开启下一个周期。
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.state = StateIdle
		return
	}
	if p.table.Size() == 0 {
		p.state = StateIdle
		return
	}
	if p.table.HasPriority(PriorityHigh) || p.table.Size() >= p.cfg.SizeCap {
		p.beginFlushLocked("backlog")
		return
	}
	p.state = StateAccumulating
	p.timer = time.AfterFunc(p.cfg.FlushDelay, p.onTimer)
}

// Close 关闭处理器：停止接收新请求，等待在途 flush 结束，
// 再同步排空余下的在途记录（drain-on-exit），保证没有等待者
// 被悬挂。幂等。
func (p *Processor) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()

	p.wg.Wait()

	records := p.table.DrainForFlush()
	if len(records) > 0 {
		p.logger.Info("draining pending requests on shutdown",
			zap.Int("records", len(records)),
		)
		if p.metrics != nil {
			p.metrics.RecordFlush("shutdown")
		}
		subs := groupRecords(records, p.cfg, p.est)
		p.executeAll(p.baseCtx, subs)
	}

	p.cancel()
	p.logger.Info("batch processor closed")
	return nil
}
