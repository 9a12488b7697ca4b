package outfit

import (
	"encoding/json"
	"fmt"
	"strings"
)

// =============================================================================
// ✅ 响应校验
// =============================================================================

// ValidateResponse 将上游原始文本解析为结构化结果。
// 永远返回结构完整的 Result：解析失败时以 FallbackResult
// 的确定性内容兜底，并置 Fallback 标记。调用方只在上游调用
// 本身失败（无响应）时才向等待者传播错误。
func ValidateResponse(raw string, kind RequestKind, items []ClothingItem) *Result {
	res, err := Parse(raw, kind, items)
	if err != nil {
		return FallbackResult(kind, items)
	}
	return res
}

// Parse 严格解析上游文本。与 ValidateResponse 不同，解析失败时
// 返回错误而不是兜底结果，供执行器判断合并响应是否整体不可用。
func Parse(raw string, kind RequestKind, items []ClothingItem) (*Result, error) {
	text := stripCodeFence(strings.TrimSpace(raw))

	// 上游偶尔会在 JSON 前后加说明文字，截取首个对象字面量。
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			text = text[start : end+1]
		}
	}

	var parsed struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		ItemIDs     []string `json:"item_ids"`
		Tips        []string `json:"tips"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("parse upstream response: %w", err)
	}
	if parsed.Title == "" && parsed.Description == "" {
		return nil, fmt.Errorf("upstream response missing title and description")
	}

	res := &Result{
		Kind:        kind,
		Title:       parsed.Title,
		Description: parsed.Description,
		ItemIDs:     parsed.ItemIDs,
		Tips:        parsed.Tips,
	}
	if res.Title == "" {
		res.Title = fallbackTitle(kind)
	}
	// 只保留属于请求条目的 ID，上游编造的引用直接丢弃。
	if len(items) > 0 && len(res.ItemIDs) > 0 {
		known := make(map[string]bool, len(items))
		for _, it := range items {
			known[it.ID] = true
		}
		kept := res.ItemIDs[:0]
		for _, id := range res.ItemIDs {
			if known[id] {
				kept = append(kept, id)
			}
		}
		res.ItemIDs = kept
	}
	return res, nil
}

// FallbackResult 构建确定性的兜底结果：同样的输入永远得到
// 同样的内容，保证等待者拿到的东西结构上总是可用的。
func FallbackResult(kind RequestKind, items []ClothingItem) *Result {
	ids := make([]string, 0, len(items))
	names := make([]string, 0, len(items))
	for _, it := range items {
		if it.ID != "" {
			ids = append(ids, it.ID)
		}
		if it.Name != "" {
			names = append(names, it.Name)
		}
	}

	desc := "A simple combination of your wardrobe items."
	if len(names) > 0 {
		desc = fmt.Sprintf("A simple combination of %s.", strings.Join(names, ", "))
	}

	return &Result{
		Kind:        kind,
		Title:       fallbackTitle(kind),
		Description: desc,
		ItemIDs:     ids,
		Tips:        []string{"Keep colors in the same temperature family.", "Anchor the look with one statement piece."},
		Fallback:    true,
	}
}

func fallbackTitle(kind RequestKind) string {
	switch kind {
	case KindStyleAnalysis:
		return "Wardrobe style overview"
	case KindOccasionMatch:
		return "Occasion-ready look"
	default:
		return "Everyday look"
	}
}

// stripCodeFence 去掉 ```json ... ``` 围栏，上游经常这么包 JSON。
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
