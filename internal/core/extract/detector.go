package extract

import (
	"context"
	"strings"

	"recipe-extractor/internal/core/ai/provider"
	"recipe-extractor/internal/core/ai/service"
	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"

	"go.uber.org/zap"
)

// recipeKeywords 食譜判定關鍵字
// 區段標題、單位、項目符號都算：寬鬆以免漏掉真食譜，誤判交給 AI 驗證擋
var recipeKeywords = []string{
	"材料", "レシピ", "作り方", "手順", "ingredients", "recipe",
	"調味料", "分量", "g", "ml", "cc", "大さじ", "小さじ",
	"①", "②", "1.", "2.", "・",
}

const validationPrompt = `あなたは料理レシピの判定専門家です。以下のテキストに実際の料理レシピ（材料や手順）が含まれているか判定してください。

宣伝文やBGMクレジット、チャンネル紹介だけの場合はレシピではありません。

レシピが含まれていない場合は、以下のJSONのみを返してください：
{"no_recipe": true, "reason": "理由"}

レシピが含まれている場合は、以下のJSONのみを返してください：
{"no_recipe": false}

判定対象のテキスト：

`

// CountKeywordMatches 計算文字中命中的關鍵字數
// 純函式，AI 驗證與關鍵字邏輯分開測
func CountKeywordMatches(text string) int {
	lower := strings.ToLower(text)
	count := 0
	for _, keyword := range recipeKeywords {
		if strings.Contains(lower, strings.ToLower(keyword)) {
			count++
		}
	}
	return count
}

// TextCompleter 文字補全的最小介面
// 關鍵字邏輯與 AI 依賴分開，測試時可單獨替換
type TextCompleter interface {
	Complete(ctx context.Context, prompt string, maxTokens int, meta service.UsageMeta) (*provider.Completion, error)
}

// Detector 食譜偵測器
// 關鍵字命中為必要條件；命中後再以 AI 驗證排除誤判
type Detector struct {
	ai     TextCompleter
	config *config.Config
}

// NewDetector 創建食譜偵測器
func NewDetector(ai TextCompleter, cfg *config.Config) *Detector {
	return &Detector{ai: ai, config: cfg}
}

// Detect 判定候選文字是否含食譜
// 零命中直接短路，不打 AI（成本控制）
// AI 驗證失敗視為「無法確認」，讓管線走下一層，不收下未驗證的文字
func (d *Detector) Detect(ctx context.Context, candidate common.CandidateText, meta service.UsageMeta) common.DetectionResult {
	matches := CountKeywordMatches(candidate.RawText)
	if matches < d.config.Detector.MinKeywordMatches {
		return common.DetectionResult{KeywordHit: false}
	}

	if !d.config.Detector.AIValidation {
		return common.DetectionResult{KeywordHit: true, AIValidated: true}
	}

	meta.Purpose = "detection"
	completion, err := d.ai.Complete(ctx, validationPrompt+candidate.RawText, 0, meta)
	if err != nil {
		common.LogWarn("偵測 AI 驗證失敗，視為無法確認",
			zap.Error(err),
			zap.String("source", string(candidate.Source)),
		)
		return common.DetectionResult{
			KeywordHit:  true,
			AIValidated: false,
			Reason:      "validation unavailable: " + err.Error(),
		}
	}

	var verdict struct {
		NoRecipe bool   `json:"no_recipe"`
		Reason   string `json:"reason"`
	}
	if err := common.ParseModelJSON(completion.Content, &verdict); err != nil {
		common.LogWarn("偵測 AI 回應無法解析，視為無法確認",
			zap.Error(err),
			zap.String("response", completion.Content),
		)
		return common.DetectionResult{
			KeywordHit:  true,
			AIValidated: false,
			Reason:      "malformed validation response",
		}
	}

	if verdict.NoRecipe {
		common.LogDebug("AI 驗證判定非食譜",
			zap.String("source", string(candidate.Source)),
			zap.String("reason", verdict.Reason),
		)
		return common.DetectionResult{
			KeywordHit:  true,
			AIValidated: false,
			Reason:      verdict.Reason,
		}
	}
	return common.DetectionResult{KeywordHit: true, AIValidated: true}
}
