package tokenizer

// Tokenizer 是统一的 Token 计数接口。批处理的分组器只需要
// 计数能力，不需要编解码，因此接口保持窄。
type Tokenizer interface {
	// CountTokens 返回给定文本的 token 数.
	CountTokens(text string) (int, error)

	// Name 返回分词器的名称.
	Name() string
}

// ForModel 返回适合给定模型的分词器：OpenAI 系模型使用
// tiktoken 精确计数，其余模型（包括 Gemini）回退到估算器。
func ForModel(model string) Tokenizer {
	if t, err := NewTiktokenTokenizer(model); err == nil && t.Known() {
		return t
	}
	return NewEstimatorTokenizer(model)
}
