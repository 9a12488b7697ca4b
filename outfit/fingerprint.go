package outfit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// 指纹各字段之间的分隔符，取 ASCII 控制字符避免与内容冲突。
const (
	fieldSep = "\x1f"
	itemSep  = "\x1e"
)

// Fingerprint 为一次生成请求计算确定性的身份指纹。
// 相同 (owner, kind, 条目集合, 上下文) 的请求无论条目顺序、
// 上下文键顺序如何，都会得到同一指纹；不同请求在 SHA-256
// 摘要空间内的碰撞概率视为可忽略（并非密码学意义上的零碰撞保证）。
func Fingerprint(owner string, kind RequestKind, items []ClothingItem, ctx map[string]any) string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, itemIdentity(it))
	}
	sort.Strings(ids)

	payload := strings.Join([]string{
		owner,
		string(kind),
		strings.Join(ids, itemSep),
		CanonicalContext(ctx),
	}, fieldSep)

	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// itemIdentity 提取条目标识。没有 ID 的条目退化为结构序列化，
// 保证仍然有稳定身份。
func itemIdentity(it ClothingItem) string {
	if it.ID != "" {
		return it.ID
	}
	data, err := json.Marshal(it)
	if err != nil {
		return fmt.Sprintf("%+v", it)
	}
	return string(data)
}

// CanonicalContext 将上下文规范化为确定性的 JSON 字符串。
// encoding/json 对 map 键做字典序排序，嵌套 map 同样适用，
// 因此同一上下文无论键的插入顺序如何都得到同一字节串。
// 空或 nil 上下文返回空字符串。
func CanonicalContext(ctx map[string]any) string {
	if len(ctx) == 0 {
		return ""
	}
	data, err := json.Marshal(ctx)
	if err != nil {
		// 上下文里出现不可序列化的值时退化为 fmt 输出，
		// 仍保持确定性（map 遍历顺序问题由 sortedPairs 规避）。
		return sortedPairs(ctx)
	}
	return string(data)
}

func sortedPairs(ctx map[string]any) string {
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(itemSep)
		}
		fmt.Fprintf(&sb, "%s=%v", k, ctx[k])
	}
	return sb.String()
}
