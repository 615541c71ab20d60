package extract

import (
	"context"
	"fmt"
	"strings"

	"recipe-extractor/internal/core/ai/provider"
	"recipe-extractor/internal/core/ai/service"
	"recipe-extractor/internal/core/video"
	"recipe-extractor/internal/pkg/common"

	"go.uber.org/zap"
)

const videoPrompt = `この料理動画を見て、レシピを抽出してください。

以下の形式でJSON形式で回答してください：
{
  "dish_name": "料理の名前",
  "ingredients": ["材料1: 分量", "材料2: 分量"],
  "steps": ["手順1の説明", "手順2の説明"],
  "tips": ["コツやポイント"]
}

動画に料理レシピが含まれていない場合は：
{"no_recipe": true, "reason": "理由"}

重要：
- 前置き文言（「はい」「動画を拝見しました」等）は絶対に含めないでください
- 材料は可能な限り分量も含めて記載
- 手順は時系列順に詳細に記載
- 調理のコツやポイントがあれば tips に含める
- 余計な説明は不要、JSON形式のみ返す`

// VideoCompleter 影片解析補全的最小介面
type VideoCompleter interface {
	AnalyzeVideo(ctx context.Context, mediaURL, mimeType, prompt string, meta service.UsageMeta) (*provider.Completion, error)
}

// MediaRefResolver 取得可餵給視覺模型的媒體位址
type MediaRefResolver interface {
	Resolve(ctx context.Context, identity *common.VideoIdentity) (*video.Media, error)
}

// VideoAnalyzer 影片解析層：文字層全落空時直接解析影片媒體
// 視覺供應者只有一個，不走備援鏈；這裡的失敗對整個請求就是終局
type VideoAnalyzer struct {
	ai    VideoCompleter
	media MediaRefResolver
}

// NewVideoAnalyzer 創建影片解析層
func NewVideoAnalyzer(ai VideoCompleter, media MediaRefResolver) *VideoAnalyzer {
	return &VideoAnalyzer{ai: ai, media: media}
}

// AnalysisOutcome 影片解析結果
type AnalysisOutcome struct {
	Recipe      *common.RefinedRecipe
	RefinedText string
	TokensUsed  int
	Model       string
}

// Analyze 解析影片並抽取食譜
// 回傳 common.ErrNoRecipe 表示模型看完影片後確認沒有食譜
func (a *VideoAnalyzer) Analyze(ctx context.Context, identity *common.VideoIdentity, meta service.UsageMeta) (*AnalysisOutcome, error) {
	media, err := a.media.Resolve(ctx, identity)
	if err != nil {
		return nil, err
	}

	meta.Purpose = "video_analysis"
	completion, err := a.ai.AnalyzeVideo(ctx, media.URL, media.MimeType, videoPrompt, meta)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		NoRecipe    bool     `json:"no_recipe"`
		Reason      string   `json:"reason"`
		DishName    string   `json:"dish_name"`
		Ingredients []string `json:"ingredients"`
		Steps       []string `json:"steps"`
		Tips        []string `json:"tips"`
	}
	if err := common.ParseModelJSON(completion.Content, &parsed); err != nil {
		// 非 JSON 回應：清掉前置文字後驗證必要區段
		text := cleanPreamble(completion.Content)
		if !validateRecipeStructure(text) {
			return nil, fmt.Errorf("incomplete video analysis: missing ingredients or steps")
		}
		common.LogWarn("影片解析回應非 JSON，保留純文字結果",
			zap.String("video_id", identity.UniqueVideoID),
		)
		return &AnalysisOutcome{
			RefinedText: text,
			TokensUsed:  completion.TokensUsed,
			Model:       completion.Model,
		}, nil
	}

	if parsed.NoRecipe {
		return nil, fmt.Errorf("%w: %s", common.ErrNoRecipe, parsed.Reason)
	}
	if len(parsed.Ingredients) == 0 || len(parsed.Steps) == 0 {
		return nil, fmt.Errorf("incomplete video analysis: missing ingredients or steps")
	}

	recipe := &common.RefinedRecipe{
		DishName:    strings.TrimSpace(parsed.DishName),
		Ingredients: ParseIngredients(parsed.Ingredients),
		Steps:       parsed.Steps,
		Tips:        parsed.Tips,
	}
	return &AnalysisOutcome{
		Recipe:      recipe,
		RefinedText: common.FormatRecipeText(recipe),
		TokensUsed:  completion.TokensUsed,
		Model:       completion.Model,
	}, nil
}

// cleanPreamble 剔除模型輸出開頭的客套話
func cleanPreamble(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	start := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "はい") ||
			strings.HasPrefix(trimmed, "動画を拝見") ||
			strings.HasPrefix(trimmed, "承知") {
			start = i + 1
			continue
		}
		break
	}
	return strings.TrimSpace(strings.Join(lines[start:], "\n"))
}

// validateRecipeStructure 檢查文字至少含材料與作法兩個區段
func validateRecipeStructure(text string) bool {
	hasIngredients := false
	for _, kw := range []string{"【材料】", "材料", "Ingredients"} {
		if strings.Contains(text, kw) {
			hasIngredients = true
			break
		}
	}
	hasSteps := false
	for _, kw := range []string{"【作り方】", "作り方", "Steps", "手順"} {
		if strings.Contains(text, kw) {
			hasSteps = true
			break
		}
	}
	return hasIngredients && hasSteps
}
