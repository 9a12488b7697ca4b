// Package cache 提供生成结果的二级缓存。
// 批处理核心对缓存写入是 best-effort：写失败只记日志，
// 绝不影响等待者拿到结果。
package cache

import (
	"context"
	"sync"
	"time"
)

// Entry 是一条缓存的生成结果，以请求指纹为键。
type Entry struct {
	Fingerprint string    `json:"fingerprint"`
	Owner       string    `json:"owner"`
	Kind        string    `json:"kind"`
	ItemIDs     []string  `json:"item_ids,omitempty"`
	Context     string    `json:"context,omitempty"` // 规范化 JSON
	Result      string    `json:"result"`            // 结果 JSON
	CreatedAt   time.Time `json:"created_at"`
}

// Store 结果缓存的窄接口。Put 对同一指纹是插入或更新语义。
type Store interface {
	Put(ctx context.Context, entry Entry) error
	Get(ctx context.Context, fingerprint string) (*Entry, bool, error)
	Close() error
}

// =============================================================================
// 🧠 内存实现（测试/本地开发）
// =============================================================================

// MemoryStore 基于内存的缓存实现（仅用于测试与本地开发）。
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore 创建内存缓存。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Put(_ context.Context, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	s.mu.Lock()
	s.entries[entry.Fingerprint] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, fingerprint string) (*Entry, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[fingerprint]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return &entry, true, nil
}

func (s *MemoryStore) Close() error { return nil }

// Len 返回缓存条数（用于测试）。
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
