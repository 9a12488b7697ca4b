package batch

import (
	"sort"

	"github.com/outfitlab/outfitflow/llm/tokenizer"
	"github.com/outfitlab/outfitflow/outfit"
)

// subBatch 是一组可以合并为一次上游调用的兼容记录。
// 只在一个调度周期内存在，不持久化。
type subBatch struct {
	records   []*record
	estTokens int
}

// groupRecords 把一次 flush 取走的记录划分为子批。
// 先按（优先级降序，入队时间升序，到达序）稳定排序：高优先级
// 先被服务，同级之间保持到达顺序，老的低优先级请求不会被无限
// 饿死。然后贪心成批：记录依次尝试加入当前子批，被条数上限、
// Token 预算或兼容性挡下时另起新批。单条记录自身就超预算时
// 仍以单例子批执行，绝不丢弃。
func groupRecords(records []*record, cfg Config, est *costEstimator) []*subBatch {
	sort.SliceStable(records, func(i, j int) bool {
		ri, rj := records[i], records[j]
		if ri.priority.rank() != rj.priority.rank() {
			return ri.priority.rank() > rj.priority.rank()
		}
		if !ri.enqueuedAt.Equal(rj.enqueuedAt) {
			return ri.enqueuedAt.Before(rj.enqueuedAt)
		}
		return ri.seq < rj.seq
	})

	var subs []*subBatch
	for _, rec := range records {
		cost := est.estimate(rec)

		var cur *subBatch
		if len(subs) > 0 {
			cur = subs[len(subs)-1]
		}

		if cur != nil &&
			len(cur.records) < cfg.MaxBatchSize &&
			cur.estTokens+cost <= cfg.TokenBudget &&
			compatible(cur.records[0], rec) {
			cur.records = append(cur.records, rec)
			cur.estTokens += cost
			continue
		}

		subs = append(subs, &subBatch{
			records:   []*record{rec},
			estTokens: cost,
		})
	}
	return subs
}

// compatible 判断两条记录能否共享一次上游调用：
// 请求类型、归属用户相同，且规范化上下文逐字节相等。
func compatible(a, b *record) bool {
	return a.req.Kind == b.req.Kind &&
		a.req.Owner == b.req.Owner &&
		a.canonicalCtx == b.canonicalCtx
}

// =============================================================================
// 🎫 Token 成本估算
// =============================================================================

// kindBaseCost 每种请求类型的基础提示词成本（估算值）。
var kindBaseCost = map[outfit.RequestKind]int{
	outfit.KindOutfitSuggestion: 220,
	outfit.KindStyleAnalysis:    260,
	outfit.KindOccasionMatch:    240,
}

// perItemCost 每件衣橱条目的边际成本（估算值）。
const perItemCost = 18

// costEstimator 估算单条记录占用的 Token 预算。
// 这是启发式预算而非精确计数：输入异常大时宁可估算也不拒绝。
type costEstimator struct {
	tok tokenizer.Tokenizer
}

func newCostEstimator(tok tokenizer.Tokenizer) *costEstimator {
	return &costEstimator{tok: tok}
}

func (e *costEstimator) estimate(rec *record) int {
	base, ok := kindBaseCost[rec.req.Kind]
	if !ok {
		base = kindBaseCost[outfit.KindOutfitSuggestion]
	}
	cost := base + perItemCost*len(rec.req.Items)

	ctxTokens := 0
	if e.tok != nil && rec.canonicalCtx != "" {
		if n, err := e.tok.CountTokens(rec.canonicalCtx); err == nil {
			ctxTokens = n
		}
	}
	if ctxTokens == 0 && rec.canonicalCtx != "" {
		// 计数器不可用时退化为按字节估算
		ctxTokens = len(rec.canonicalCtx)/4 + 1
	}
	return cost + ctxTokens
}
