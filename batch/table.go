package batch

import (
	"sync"
	"time"

	"github.com/outfitlab/outfitflow/outfit"
)

// Priority 请求的调度优先级。
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid 判断优先级取值是否合法。
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// rank 数值越大优先级越高。未知取值按 medium 处理。
func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityLow:
		return 0
	default:
		return 1
	}
}

// Request 一次待批处理的生成请求。
type Request struct {
	Owner    string                 `json:"owner"`
	Kind     outfit.RequestKind     `json:"kind"`
	Items    []outfit.ClothingItem  `json:"items"`
	Context  map[string]any         `json:"context,omitempty"`
	Priority Priority               `json:"priority,omitempty"`
}

// outcome 是派发给等待者的最终结果：结构化结果或错误，二选一。
type outcome struct {
	result *outfit.Result
	err    error
}

// waiter 每个等待者一个带缓冲的通道，派发时写入一次后关闭。
// 显式的等待者列表取代回调链式包装，高去重负载下不会嵌套调用栈。
type waiter chan outcome

// record 表示一件去重后的在途工作。
type record struct {
	fingerprint  string
	req          Request
	canonicalCtx string
	priority     Priority
	enqueuedAt   time.Time
	seq          uint64
	waiters      []waiter
}

// PendingTable 进程级的指纹 → 在途记录映射。
// 所有修改都在同一互斥段内完成：并发 Enqueue 不会为同一指纹
// 建出两条记录，Drain 也不会看到插了一半的记录。
type PendingTable struct {
	mu      sync.Mutex
	records map[string]*record
	seq     uint64
}

// NewPendingTable 创建空表。
func NewPendingTable() *PendingTable {
	return &PendingTable{records: make(map[string]*record)}
}

// Enqueue 插入或挂接一个请求。同指纹的记录已存在时（去重命中）
// 追加一个等待者并返回 hit=true，不产生新的上游工作；否则建新
// 记录。去重命中的高优先级请求会抬升既有记录的优先级。
// 返回的 waiter 通道在派发时恰好收到一次结果。
func (t *PendingTable) Enqueue(req Request) (fp string, w waiter, hit bool) {
	fp = outfit.Fingerprint(req.Owner, req.Kind, req.Items, req.Context)
	w = make(waiter, 1)

	t.mu.Lock()
	defer t.mu.Unlock()

	if rec, ok := t.records[fp]; ok {
		rec.waiters = append(rec.waiters, w)
		if req.Priority.rank() > rec.priority.rank() {
			rec.priority = req.Priority
		}
		return fp, w, true
	}

	t.seq++
	t.records[fp] = &record{
		fingerprint:  fp,
		req:          req,
		canonicalCtx: outfit.CanonicalContext(req.Context),
		priority:     req.Priority,
		enqueuedAt:   time.Now(),
		seq:          t.seq,
		waiters:      []waiter{w},
	}
	return fp, w, false
}

// DrainForFlush 原子地取走全部在途记录。被取走的记录对后续
// Enqueue 不可见：同指纹的新请求会建新记录，接受有界的重复
// 工作而不是无界的正确性风险。
func (t *PendingTable) DrainForFlush() []*record {
	t.mu.Lock()
	defer t.mu.Unlock()

	drained := make([]*record, 0, len(t.records))
	for _, rec := range t.records {
		drained = append(drained, rec)
	}
	t.records = make(map[string]*record)
	return drained
}

// Size 返回在途记录数。
func (t *PendingTable) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// HasPriority 判断表中是否存在给定优先级的记录。
func (t *PendingTable) HasPriority(p Priority) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, rec := range t.records {
		if rec.priority == p {
			return true
		}
	}
	return false
}
