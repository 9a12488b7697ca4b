package outfit

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// =============================================================================
// 📝 提示词构建
// =============================================================================

// SectionMarker 返回合并提示词中第 i 个请求（从 0 计）的位置标记。
// 标记同时用于要求上游按段落作答和切分合并响应。
func SectionMarker(i int) string {
	return fmt.Sprintf("=== LOOK %d ===", i+1)
}

var sectionMarkerRe = regexp.MustCompile(`(?m)^\s*===\s*LOOK\s+\d+\s*===\s*$`)

// kindInstruction 每种请求类型的任务说明。
var kindInstruction = map[RequestKind]string{
	KindOutfitSuggestion: "Suggest one complete outfit from the wardrobe items below.",
	KindStyleAnalysis:    "Analyze the overall style of the wardrobe items below.",
	KindOccasionMatch:    "Pick the best outfit from the wardrobe items below for the given occasion.",
}

// BuildPrompt 为单个请求构建提示词。纯函数，无失败路径。
func BuildPrompt(kind RequestKind, items []ClothingItem, ctx map[string]any) string {
	var sb strings.Builder
	sb.WriteString("You are a personal fashion stylist.\n")

	instr, ok := kindInstruction[kind]
	if !ok {
		instr = kindInstruction[KindOutfitSuggestion]
	}
	sb.WriteString(instr)
	sb.WriteString("\n\nWardrobe items:\n")
	writeItems(&sb, items)

	if len(ctx) > 0 {
		sb.WriteString("\nContext:\n")
		writeContext(&sb, ctx)
	}

	sb.WriteString("\nRespond with a single JSON object: ")
	sb.WriteString(`{"title": string, "description": string, "item_ids": [string], "tips": [string]}.`)
	sb.WriteString(" Do not add any text outside the JSON.")
	return sb.String()
}

// BatchEntry 是合并提示词中的一个条目。
type BatchEntry struct {
	Kind    RequestKind
	Items   []ClothingItem
	Context map[string]any
}

// BuildBatchPrompt 把多个兼容请求合并为一个提示词，
// 每个请求用位置标记开头，要求上游按同样的标记分段作答。
func BuildBatchPrompt(entries []BatchEntry) string {
	var sb strings.Builder
	sb.WriteString("You are a personal fashion stylist.\n")
	fmt.Fprintf(&sb, "Answer %d independent requests. Start the answer to request N with the exact line \"=== LOOK N ===\" and nothing else on that line.\n", len(entries))
	sb.WriteString("Each answer is a single JSON object: ")
	sb.WriteString(`{"title": string, "description": string, "item_ids": [string], "tips": [string]}.`)
	sb.WriteString("\n")

	for i, e := range entries {
		sb.WriteString("\n")
		sb.WriteString(SectionMarker(i))
		sb.WriteString("\n")

		instr, ok := kindInstruction[e.Kind]
		if !ok {
			instr = kindInstruction[KindOutfitSuggestion]
		}
		sb.WriteString(instr)
		sb.WriteString("\nWardrobe items:\n")
		writeItems(&sb, e.Items)
		if len(e.Context) > 0 {
			sb.WriteString("Context:\n")
			writeContext(&sb, e.Context)
		}
	}
	return sb.String()
}

// SplitSections 按位置标记切分合并响应，返回各段正文（标记行之前的
// 引言被丢弃）。上游分段是不可信输入：切不出任何段落时返回空切片，
// 由调用方决定降级策略。
func SplitSections(raw string) []string {
	locs := sectionMarkerRe.FindAllStringIndex(raw, -1)
	if len(locs) == 0 {
		return nil
	}

	sections := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(raw)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		sections = append(sections, strings.TrimSpace(raw[loc[1]:end]))
	}
	return sections
}

func writeItems(sb *strings.Builder, items []ClothingItem) {
	if len(items) == 0 {
		sb.WriteString("- (none)\n")
		return
	}
	for _, it := range items {
		fmt.Fprintf(sb, "- [%s] %s", it.ID, it.Name)
		var attrs []string
		for _, a := range []string{it.Category, it.Color, it.Style, it.Season} {
			if a != "" {
				attrs = append(attrs, a)
			}
		}
		if len(attrs) > 0 {
			fmt.Fprintf(sb, " (%s)", strings.Join(attrs, ", "))
		}
		sb.WriteString("\n")
	}
}

// writeContext 按键排序输出上下文，保证同一上下文生成同一提示词。
func writeContext(sb *strings.Builder, ctx map[string]any) {
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(sb, "- %s: %v\n", k, ctx[k])
	}
}
