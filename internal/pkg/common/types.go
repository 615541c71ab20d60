package common

import (
	"fmt"
	"strings"
	"time"
)

// Platform 影片平台
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformUnknown   Platform = "unknown"
)

// VideoIdentity 影片唯一識別
// (platform, unique_video_id) 為快取鍵，URL 僅保留原始輸入
type VideoIdentity struct {
	Platform      Platform `json:"platform"`
	UniqueVideoID string   `json:"unique_video_id"`
	URL           string   `json:"url"`
}

// CandidateSource 候選文字來源
type CandidateSource string

const (
	SourceDescription CandidateSource = "description"
	SourceComment     CandidateSource = "comment"
)

// CandidateText 單次請求內的候選文字，不會以原始形式持久化
type CandidateText struct {
	Source  CandidateSource `json:"source"`
	RawText string          `json:"raw_text"`
}

// DetectionResult 食譜偵測結果
// 關鍵字命中為必要條件，AI 驗證可推翻關鍵字命中
type DetectionResult struct {
	KeywordHit  bool   `json:"keyword_hit"`
	AIValidated bool   `json:"ai_validated"`
	Reason      string `json:"reason,omitempty"`
}

// Ingredient 食材
// SubAmount/SubUnit 為原文括號內的換算單位（如重量），與 Amount/Unit 互相獨立
type Ingredient struct {
	Name      string `json:"name"`
	Amount    string `json:"amount,omitempty"`
	Unit      string `json:"unit,omitempty"`
	SubAmount string `json:"sub_amount,omitempty"`
	SubUnit   string `json:"sub_unit,omitempty"`
}

// RefinedRecipe 整形後的食譜
type RefinedRecipe struct {
	DishName    string       `json:"dish_name"`
	Ingredients []Ingredient `json:"ingredients"`
	Steps       []string     `json:"steps"`
	Tips        []string     `json:"tips"`
}

// ExtractionMethod 抽取方式
type ExtractionMethod string

const (
	MethodDescription ExtractionMethod = "description"
	MethodComment     ExtractionMethod = "comment"
	MethodAIVideo     ExtractionMethod = "ai_video"
)

// RefinementStatus 整形狀態
type RefinementStatus string

const (
	RefinementSuccess       RefinementStatus = "success"
	RefinementFailed        RefinementStatus = "failed"
	RefinementSkipped       RefinementStatus = "skipped"
	RefinementNotApplicable RefinementStatus = "not_applicable"
)

// ExtractionRecord 持久化的抽取結果
// (platform, unique_video_id) 唯一，建立後不再更新
type ExtractionRecord struct {
	ID               int64            `json:"-"`
	Platform         Platform         `json:"platform"`
	UniqueVideoID    string           `json:"unique_video_id"`
	Method           ExtractionMethod `json:"extraction_method"`
	RefinedText      string           `json:"refined_text"`
	RefinementStatus RefinementStatus `json:"refinement_status"`
	AIModel          string           `json:"ai_model,omitempty"`
	TokensUsed       int              `json:"tokens_used"`
	ExtractionFlow   string           `json:"extraction_flow"`
	CreatedAt        time.Time        `json:"created_at"`
}

// AIUsageLog AI 使用量記錄（成本帳，僅追加）
type AIUsageLog struct {
	ID            int64     `json:"-"`
	Platform      Platform  `json:"platform"`
	UniqueVideoID string    `json:"unique_video_id"`
	Purpose       string    `json:"purpose"` // detection | refinement | video_analysis
	Provider      string    `json:"provider"`
	AIModel       string    `json:"ai_model"`
	TokensUsed    int       `json:"tokens_used"`
	DurationMS    int64     `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

// FormatIngredient 將食材轉為單行文字（例：ズッキーニ 1本(200g)）
func FormatIngredient(ing Ingredient) string {
	var sb strings.Builder
	sb.WriteString(ing.Name)
	if ing.Amount != "" || ing.Unit != "" {
		sb.WriteString(" ")
		sb.WriteString(ing.Amount)
		sb.WriteString(ing.Unit)
	}
	if ing.SubAmount != "" {
		sb.WriteString(fmt.Sprintf("(%s%s)", ing.SubAmount, ing.SubUnit))
	}
	return sb.String()
}

// FormatRecipeText 將結構化食譜轉為區段文字
// 區段格式沿用既有前端所依賴的【料理名】【材料】【作り方】【コツ・ポイント】
func FormatRecipeText(recipe *RefinedRecipe) string {
	if recipe == nil {
		return ""
	}

	var parts []string

	if recipe.DishName != "" {
		parts = append(parts, fmt.Sprintf("【料理名】\n%s", recipe.DishName))
	}

	if len(recipe.Ingredients) > 0 {
		lines := []string{"【材料】"}
		for _, ing := range recipe.Ingredients {
			lines = append(lines, "- "+FormatIngredient(ing))
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}

	if len(recipe.Steps) > 0 {
		lines := []string{"【作り方】"}
		for i, step := range recipe.Steps {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, step))
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}

	if len(recipe.Tips) > 0 {
		lines := []string{"【コツ・ポイント】"}
		for _, tip := range recipe.Tips {
			lines = append(lines, "- "+tip)
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}

	return strings.Join(parts, "\n\n")
}
