package outfit

// RequestKind 表示一次生成请求的类型。
type RequestKind string

const (
	// KindOutfitSuggestion 根据衣橱条目生成穿搭建议。
	KindOutfitSuggestion RequestKind = "outfit_suggestion"
	// KindStyleAnalysis 分析衣橱的整体风格。
	KindStyleAnalysis RequestKind = "style_analysis"
	// KindOccasionMatch 针对特定场合挑选搭配。
	KindOccasionMatch RequestKind = "occasion_match"
)

// Valid 判断请求类型是否已知。
func (k RequestKind) Valid() bool {
	switch k {
	case KindOutfitSuggestion, KindStyleAnalysis, KindOccasionMatch:
		return true
	}
	return false
}

// ClothingItem 表示衣橱中的一件单品。
type ClothingItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"` // top, bottom, shoes, accessory...
	Color    string `json:"color,omitempty"`
	Style    string `json:"style,omitempty"`
	Season   string `json:"season,omitempty"`
}

// Result 是一次生成请求的结构化结果。
// 校验器保证 Result 始终结构完整：上游输出无法解析时
// 会以确定性的兜底内容填充，并置 Fallback 标记。
type Result struct {
	Kind        RequestKind `json:"kind"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	ItemIDs     []string    `json:"item_ids,omitempty"`
	Tips        []string    `json:"tips,omitempty"`
	Fallback    bool        `json:"fallback,omitempty"`
}
