package provider

import (
	"context"
)

// Completion 單次文字補全的結果
// TokensUsed 只反映實際成功的供應商，失敗嘗試不計入
type Completion struct {
	Content          string `json:"content"`
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TokensUsed       int    `json:"total_tokens"`
}

// TextProvider 定義文字補全供應者介面
type TextProvider interface {
	// Complete 以指定模型生成單輪補全
	// maxTokens 為輸出 token 上限，0 表示沿用供應者預設
	Complete(ctx context.Context, model, prompt string, maxTokens int) (*Completion, error)

	// Name 供應者名稱（openrouter、gemini）
	Name() string

	// Close 關閉供應者連接
	Close() error
}

// ChainEntry 備援鏈中的一棒：特定供應者上的特定模型
type ChainEntry struct {
	Provider TextProvider
	Model    string
}
