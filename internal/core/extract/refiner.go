package extract

import (
	"context"
	"strings"

	"recipe-extractor/internal/core/ai/service"
	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"

	"go.uber.org/zap"
)

const refinePrompt = `あなたは料理レシピの整理専門家です。与えられたテキストからレシピ情報のみを抽出し、整形してください。

以下の情報は必ず除外してください：
- BGM情報、音楽クレジット（BGM: ○○、Music by、♪、使用音源など）
- チャンネル登録やいいねのお願い
- スポンサー情報、PR、宣伝
- カメラ・編集ソフト情報
- コメント欄への誘導
- SNSリンク、ハッシュタグ
- 動画投稿者の自己紹介

レシピが含まれていない場合は、以下のJSONを返してください：
{"no_recipe": true}

レシピが含まれている場合は、以下のJSON形式で返してください：
{"dish_name": "料理の名前", "ingredients": ["材料1: 分量"], "steps": ["手順1"], "tips": ["コツ1"]}

以下のテキストからレシピを抽出してください：

`

// boilerplatePhrases 詞法清理時剔除的行
// JSON 解析失敗時退回純文字，至少把宣傳句拿掉
var boilerplatePhrases = []string{
	"チャンネル登録", "高評価", "いいね", "subscribe",
	"bgm", "music by", "使用音源", "♪",
	"提供：", "スポンサー", "sponsored", "#pr",
	"instagram.com", "twitter.com", "tiktok.com", "http://", "https://",
	"#",
}

// RefineOutcome 整形結果
type RefineOutcome struct {
	Recipe      *common.RefinedRecipe
	RefinedText string
	Status      common.RefinementStatus
	TokensUsed  int
	Model       string
	ErrorDetail string
}

// Refiner 把驗證過的候選文字整形為結構化食譜
type Refiner struct {
	ai     TextCompleter
	config *config.Config
}

// NewRefiner 創建整形器
func NewRefiner(ai TextCompleter, cfg *config.Config) *Refiner {
	return &Refiner{ai: ai, config: cfg}
}

// Refine 沿備援鏈整形候選文字
// JSON 解析成功 → success（結構化）
// 解析失敗但有可救回的文字 → success（非結構化，詞法清理後的全文）
// 鏈耗盡且無可救回 → failed
// 整形功能關閉 → skipped，原文直接保留
func (r *Refiner) Refine(ctx context.Context, candidate common.CandidateText, meta service.UsageMeta) *RefineOutcome {
	if !r.config.Refinement.Enabled {
		return &RefineOutcome{
			RefinedText: candidate.RawText,
			Status:      common.RefinementSkipped,
		}
	}
	if strings.TrimSpace(candidate.RawText) == "" {
		return &RefineOutcome{Status: common.RefinementSkipped}
	}

	meta.Purpose = "refinement"
	completion, err := r.ai.Complete(ctx, refinePrompt+candidate.RawText, r.config.Refinement.MaxTokens, meta)
	if err != nil {
		// 鏈耗盡：有可救回的原文就降級為非結構化結果
		salvaged := CleanBoilerplate(candidate.RawText)
		if salvaged != "" {
			common.LogWarn("整形鏈耗盡，退回詞法清理結果",
				zap.Error(err),
				zap.String("source", string(candidate.Source)),
			)
			return &RefineOutcome{
				RefinedText: salvaged,
				Status:      common.RefinementSuccess,
				ErrorDetail: err.Error(),
			}
		}
		return &RefineOutcome{
			Status:      common.RefinementFailed,
			ErrorDetail: err.Error(),
		}
	}

	outcome := r.parseCompletion(completion.Content, candidate)
	outcome.TokensUsed = completion.TokensUsed
	outcome.Model = completion.Model
	return outcome
}

// parseCompletion 解析模型輸出
func (r *Refiner) parseCompletion(content string, candidate common.CandidateText) *RefineOutcome {
	var parsed struct {
		NoRecipe    bool     `json:"no_recipe"`
		DishName    string   `json:"dish_name"`
		Ingredients []string `json:"ingredients"`
		Steps       []string `json:"steps"`
		Tips        []string `json:"tips"`
	}

	if err := common.ParseModelJSON(content, &parsed); err != nil {
		// 補鍵重試也解不開才走詞法清理退路
		salvaged := CleanBoilerplate(content)
		if salvaged == "" {
			salvaged = CleanBoilerplate(candidate.RawText)
		}
		if salvaged != "" {
			common.LogDebug("整形回應非 JSON，使用詞法清理",
				zap.String("source", string(candidate.Source)),
			)
			return &RefineOutcome{
				RefinedText: salvaged,
				Status:      common.RefinementSuccess,
			}
		}
		return &RefineOutcome{
			Status:      common.RefinementFailed,
			ErrorDetail: "unparseable refinement response",
		}
	}

	if parsed.NoRecipe {
		salvaged := CleanBoilerplate(candidate.RawText)
		if salvaged != "" {
			return &RefineOutcome{
				RefinedText: salvaged,
				Status:      common.RefinementSuccess,
				ErrorDetail: "model reported no recipe",
			}
		}
		return &RefineOutcome{
			Status:      common.RefinementFailed,
			ErrorDetail: "model reported no recipe",
		}
	}

	recipe := &common.RefinedRecipe{
		DishName:    strings.TrimSpace(parsed.DishName),
		Ingredients: ParseIngredients(parsed.Ingredients),
		Steps:       parsed.Steps,
		Tips:        parsed.Tips,
	}
	return &RefineOutcome{
		Recipe:      recipe,
		RefinedText: common.FormatRecipeText(recipe),
		Status:      common.RefinementSuccess,
	}
}

// CleanBoilerplate 逐行剔除宣傳句，回傳剩下的文字
func CleanBoilerplate(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)
		drop := false
		for _, phrase := range boilerplatePhrases {
			if strings.Contains(lower, phrase) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, "\n")
}
