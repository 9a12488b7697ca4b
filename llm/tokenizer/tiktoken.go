package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TiktokenTokenizer 为 OpenAI 系模型封装 tiktoken。
// 对非 OpenAI 模型（如 Gemini）tiktoken 的计数只是近似值，
// 这类模型应使用 EstimatorTokenizer。
type TiktokenTokenizer struct {
	model    string
	encoding string
	known    bool
	enc      *tiktoken.Tiktoken
	once     sync.Once
	initErr  error
}

// modelEncodings 将模型名称映射到其 tiktoken 编码。
var modelEncodings = map[string]string{
	"gpt-4o":        "o200k_base",
	"gpt-4o-mini":   "o200k_base",
	"gpt-4-turbo":   "cl100k_base",
	"gpt-4":         "cl100k_base",
	"gpt-3.5-turbo": "cl100k_base",
}

// NewTiktokenTokenizer 为给定模型创建 tiktoken 计数器。
func NewTiktokenTokenizer(model string) (*TiktokenTokenizer, error) {
	encoding, ok := modelEncodings[model]
	if !ok {
		// 尝试前缀匹配。
		for prefix, e := range modelEncodings {
			if len(model) >= len(prefix) && model[:len(prefix)] == prefix {
				encoding = e
				ok = true
				break
			}
		}
	}
	if !ok {
		encoding = "cl100k_base"
	}

	return &TiktokenTokenizer{
		model:    model,
		encoding: encoding,
		known:    ok,
	}, nil
}

// Known 报告模型是否有已知的 tiktoken 编码。
func (t *TiktokenTokenizer) Known() bool { return t.known }

// init lazily 初始化 tiktoken 编码（首次使用时可能需要下载数据）。
func (t *TiktokenTokenizer) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

func (t *TiktokenTokenizer) CountTokens(text string) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}
	tokens := t.enc.Encode(text, nil, nil)
	return len(tokens), nil
}

func (t *TiktokenTokenizer) Name() string {
	return fmt.Sprintf("tiktoken[%s]", t.encoding)
}
