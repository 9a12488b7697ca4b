package batch

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/outfitlab/outfitflow/llm"
	"github.com/outfitlab/outfitflow/outfit"
)

// executeAll 并发执行一次 flush 的全部子批。子批之间没有共享
// 可变状态，完成顺序任意：慢子批不会阻塞其他子批的调用方。
func (p *Processor) executeAll(ctx context.Context, subs []*subBatch) {
	var g errgroup.Group
	for _, sb := range subs {
		sb := sb
		if p.metrics != nil {
			p.metrics.RecordSubBatch(len(sb.records), sb.estTokens)
		}
		g.Go(func() error {
			p.executeSubBatch(ctx, sb)
			return nil
		})
	}
	_ = g.Wait()
}

// executeSubBatch 执行一个子批：单例走单次调用，多记录构建
// 合并提示词、发起一次上游调用并按位置标记拆分响应。
func (p *Processor) executeSubBatch(ctx context.Context, sb *subBatch) {
	if len(sb.records) == 1 {
		p.executeSingle(ctx, sb.records[0])
		return
	}

	entries := make([]outfit.BatchEntry, len(sb.records))
	for i, rec := range sb.records {
		entries[i] = outfit.BatchEntry{
			Kind:    rec.req.Kind,
			Items:   rec.req.Items,
			Context: rec.req.Context,
		}
	}

	prompt := outfit.BuildBatchPrompt(entries)
	text, err := p.gen.Generate(ctx, prompt, p.combinedOpts(len(sb.records)))
	if p.metrics != nil {
		p.metrics.RecordUpstreamCall("combined", err)
	}
	if err != nil {
		// 上游不可用：整个子批拒绝，本层不重试。
		p.logger.Warn("combined upstream call failed",
			zap.Int("records", len(sb.records)),
			zap.Error(err),
		)
		for _, rec := range sb.records {
			p.dispatch(rec, nil, err)
		}
		return
	}

	sections := outfit.SplitSections(text)
	switch {
	case len(sections) >= len(sb.records):
		// 1:1 分配，多余的尾部段落丢弃。
		outcome := "exact"
		if len(sections) > len(sb.records) {
			outcome = "truncated"
		}
		if p.metrics != nil {
			p.metrics.RecordSplit(outcome)
		}
		for i, rec := range sb.records {
			p.dispatch(rec, p.validate(sections[i], rec), nil)
		}

	case len(sections) >= 1:
		// 分段不足：整体按单个结果解析并广播给子批中的每个
		// 记录，降级但可用，绝不因切分失败让整批拒绝。
		if p.metrics != nil {
			p.metrics.RecordSplit("broadcast")
		}
		p.logger.Warn("combined response under-segmented, broadcasting",
			zap.Int("expected", len(sb.records)),
			zap.Int("got", len(sections)),
		)
		for _, rec := range sb.records {
			p.dispatch(rec, p.validate(text, rec), nil)
		}

	default:
		// 一个标记都没切出来。整体能按单结果解析就广播，
		// 否则放弃合并尝试，逐条重新执行，隔离个别记录的
		// 畸形输出。
		if _, perr := outfit.Parse(text, sb.records[0].req.Kind, sb.records[0].req.Items); perr == nil {
			if p.metrics != nil {
				p.metrics.RecordSplit("broadcast")
			}
			for _, rec := range sb.records {
				p.dispatch(rec, p.validate(text, rec), nil)
			}
			return
		}
		if p.metrics != nil {
			p.metrics.RecordSplit("reexec")
		}
		p.logger.Warn("combined response unparseable, re-executing individually",
			zap.Int("records", len(sb.records)),
		)
		p.executeIndividually(ctx, sb.records)
	}
}

// executeSingle 为单条记录发起一次上游调用。
func (p *Processor) executeSingle(ctx context.Context, rec *record) {
	prompt := outfit.BuildPrompt(rec.req.Kind, rec.req.Items, rec.req.Context)
	text, err := p.gen.Generate(ctx, prompt, p.singleOpts())
	if p.metrics != nil {
		p.metrics.RecordUpstreamCall("single", err)
	}
	if err != nil {
		p.dispatch(rec, nil, err)
		return
	}
	p.dispatch(rec, p.validate(text, rec), nil)
}

// executeIndividually 合并尝试失败后的回退路径：每条记录各发
// 一次上游调用，个别记录失败只影响它自己的等待者。
func (p *Processor) executeIndividually(ctx context.Context, records []*record) {
	var g errgroup.Group
	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			prompt := outfit.BuildPrompt(rec.req.Kind, rec.req.Items, rec.req.Context)
			text, err := p.gen.Generate(ctx, prompt, p.singleOpts())
			if p.metrics != nil {
				p.metrics.RecordUpstreamCall("fallback", err)
			}
			if err != nil {
				p.dispatch(rec, nil, err)
				return nil
			}
			p.dispatch(rec, p.validate(text, rec), nil)
			return nil
		})
	}
	_ = g.Wait()
}

// validate 校验一段上游输出，统计落入兜底的次数。
func (p *Processor) validate(text string, rec *record) *outfit.Result {
	res := outfit.ValidateResponse(text, rec.req.Kind, rec.req.Items)
	if res.Fallback && p.metrics != nil {
		p.metrics.RecordFallbackPayload()
	}
	return res
}

func (p *Processor) singleOpts() llm.GenerateOptions {
	return llm.GenerateOptions{
		Temperature:     p.cfg.Temperature,
		MaxOutputTokens: p.cfg.MaxOutputTokens,
	}
}

// combinedOpts 合并调用按记录数扩大输出上限，避免尾部段落被截断。
func (p *Processor) combinedOpts(n int) llm.GenerateOptions {
	maxOut := p.cfg.MaxOutputTokens * n
	const hardCap = 8192
	if maxOut > hardCap {
		maxOut = hardCap
	}
	return llm.GenerateOptions{
		Temperature:     p.cfg.Temperature,
		MaxOutputTokens: maxOut,
	}
}
