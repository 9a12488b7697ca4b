package batch

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/outfitlab/outfitflow/cache"
	"github.com/outfitlab/outfitflow/outfit"
)

// cacheWriteTimeout 缓存写入的独立超时，不影响派发。
const cacheWriteTimeout = 5 * time.Second

// dispatch 完成一条记录：先 best-effort 写缓存，再按挂接顺序
// 把结果恰好一次地发给每个等待者，随后记录即被丢弃。
// 重复派发是逻辑缺陷——waiters 置 nil 使其可被检测。
func (p *Processor) dispatch(rec *record, res *outfit.Result, err error) {
	if rec.waiters == nil {
		p.logger.Error("re-dispatch of completed record",
			zap.String("fingerprint", rec.fingerprint),
		)
		return
	}

	if err == nil && res != nil {
		p.writeCache(rec, res)
	}

	out := outcome{result: res, err: err}
	for _, w := range rec.waiters {
		// 通道带缓冲且只写一次，放弃等待的调用方不会阻塞派发。
		w <- out
		close(w)
	}
	waiters := len(rec.waiters)
	rec.waiters = nil

	if p.metrics != nil {
		p.metrics.RecordDispatch(err == nil, waiters)
	}
	if err != nil {
		p.logger.Debug("record rejected",
			zap.String("fingerprint", rec.fingerprint),
			zap.Int("waiters", waiters),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("record resolved",
		zap.String("fingerprint", rec.fingerprint),
		zap.Int("waiters", waiters),
	)
}

// writeCache 把结果写入结果缓存。写失败只记日志与指标，
// 永远不影响调用方。
func (p *Processor) writeCache(rec *record, res *outfit.Result) {
	if p.store == nil {
		return
	}

	data, err := json.Marshal(res)
	if err != nil {
		p.logger.Warn("marshal result for cache failed",
			zap.String("fingerprint", rec.fingerprint),
			zap.Error(err),
		)
		return
	}

	itemIDs := make([]string, 0, len(rec.req.Items))
	for _, it := range rec.req.Items {
		if it.ID != "" {
			itemIDs = append(itemIDs, it.ID)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
	defer cancel()

	entry := cache.Entry{
		Fingerprint: rec.fingerprint,
		Owner:       rec.req.Owner,
		Kind:        string(rec.req.Kind),
		ItemIDs:     itemIDs,
		Context:     rec.canonicalCtx,
		Result:      string(data),
	}
	if err := p.store.Put(ctx, entry); err != nil {
		if p.metrics != nil {
			p.metrics.RecordCacheWriteFailure()
		}
		p.logger.Warn("result cache write failed",
			zap.String("fingerprint", rec.fingerprint),
			zap.Error(err),
		)
	}
}
