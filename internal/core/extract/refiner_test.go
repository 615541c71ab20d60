package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-extractor/internal/core/ai/service"
	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"
)

func refinerConfig(enabled bool) *config.Config {
	return &config.Config{
		Refinement: config.RefinementConfig{Enabled: enabled, MaxTokens: 2000},
	}
}

func descriptionCandidate(text string) common.CandidateText {
	return common.CandidateText{Source: common.SourceDescription, RawText: text}
}

func TestRefine_StructuredJSON(t *testing.T) {
	ai := &fakeCompleter{response: `{"dish_name": "ズッキーニのソテー", "ingredients": ["ズッキーニ1本(200g)", "塩: 少々"], "steps": ["切る", "焼く"], "tips": ["強火で手早く"]}`}
	r := NewRefiner(ai, refinerConfig(true))

	outcome := r.Refine(context.Background(), descriptionCandidate("【材料】ズッキーニ…"), service.UsageMeta{})

	assert.Equal(t, common.RefinementSuccess, outcome.Status)
	require.NotNil(t, outcome.Recipe)
	assert.Equal(t, "ズッキーニのソテー", outcome.Recipe.DishName)
	require.Len(t, outcome.Recipe.Ingredients, 2)
	assert.Equal(t, common.Ingredient{
		Name: "ズッキーニ", Amount: "1", Unit: "本", SubAmount: "200", SubUnit: "g",
	}, outcome.Recipe.Ingredients[0])
	assert.Contains(t, outcome.RefinedText, "【料理名】")
	assert.Contains(t, outcome.RefinedText, "【材料】")
	assert.Contains(t, outcome.RefinedText, "【作り方】")
	assert.Contains(t, outcome.RefinedText, "【コツ・ポイント】")
	assert.Equal(t, 42, outcome.TokensUsed)
	assert.Equal(t, "google/gemma-3-27b-it:free", outcome.Model)
}

func TestRefine_FenceWrappedJSON(t *testing.T) {
	ai := &fakeCompleter{response: "```json\n{\"dish_name\": \"卵焼き\", \"ingredients\": [\"卵: 2個\"], \"steps\": [\"焼く\"]}\n```"}
	r := NewRefiner(ai, refinerConfig(true))

	outcome := r.Refine(context.Background(), descriptionCandidate("【材料】卵…"), service.UsageMeta{})

	assert.Equal(t, common.RefinementSuccess, outcome.Status)
	require.NotNil(t, outcome.Recipe)
	assert.Equal(t, "卵焼き", outcome.Recipe.DishName)
}

func TestRefine_UnquotedKeysRepaired(t *testing.T) {
	// 鍵沒加引號的回應要能補鍵重解，不能掉到詞法清理
	ai := &fakeCompleter{response: `{dish_name: "卵焼き", ingredients: ["卵: 2個"], steps: ["焼く"]}`}
	r := NewRefiner(ai, refinerConfig(true))

	outcome := r.Refine(context.Background(), descriptionCandidate("【材料】卵…"), service.UsageMeta{})

	assert.Equal(t, common.RefinementSuccess, outcome.Status)
	require.NotNil(t, outcome.Recipe)
	assert.Equal(t, "卵焼き", outcome.Recipe.DishName)
	require.Len(t, outcome.Recipe.Ingredients, 1)
	assert.Equal(t, "卵", outcome.Recipe.Ingredients[0].Name)
}

func TestRefine_ForwardsMaxTokensCap(t *testing.T) {
	ai := &fakeCompleter{response: `{"dish_name": "卵焼き", "ingredients": ["卵: 2個"], "steps": ["焼く"]}`}
	r := NewRefiner(ai, refinerConfig(true))

	r.Refine(context.Background(), descriptionCandidate("【材料】卵…"), service.UsageMeta{})

	assert.Equal(t, 2000, ai.lastMaxTokens)
}

func TestRefine_NonJSONResponse_LexicalSalvage(t *testing.T) {
	ai := &fakeCompleter{response: "材料は卵2個です\nチャンネル登録よろしく\n焼いて完成"}
	r := NewRefiner(ai, refinerConfig(true))

	outcome := r.Refine(context.Background(), descriptionCandidate("【材料】卵…"), service.UsageMeta{})

	// 非 JSON 回應也能用詞法清理救回，降級為非結構化結果
	assert.Equal(t, common.RefinementSuccess, outcome.Status)
	assert.Nil(t, outcome.Recipe)
	assert.Contains(t, outcome.RefinedText, "材料は卵2個です")
	assert.NotContains(t, outcome.RefinedText, "チャンネル登録")
}

func TestRefine_ChainExhausted_SalvagesRawText(t *testing.T) {
	ai := &fakeCompleter{err: errors.New("all providers exhausted")}
	r := NewRefiner(ai, refinerConfig(true))

	raw := "【材料】\n卵 2個\nBGM: 曲名\nhttps://example.com/blog"
	outcome := r.Refine(context.Background(), descriptionCandidate(raw), service.UsageMeta{})

	assert.Equal(t, common.RefinementSuccess, outcome.Status)
	assert.Contains(t, outcome.RefinedText, "卵 2個")
	assert.NotContains(t, outcome.RefinedText, "BGM")
	assert.NotContains(t, outcome.RefinedText, "https://")
	assert.Equal(t, "all providers exhausted", outcome.ErrorDetail)
}

func TestRefine_ChainExhausted_NothingSalvageable(t *testing.T) {
	ai := &fakeCompleter{err: errors.New("all providers exhausted")}
	r := NewRefiner(ai, refinerConfig(true))

	// 原文只剩宣傳句時無可救回
	outcome := r.Refine(context.Background(), descriptionCandidate("チャンネル登録お願いします！\nBGM: 曲名"), service.UsageMeta{})

	assert.Equal(t, common.RefinementFailed, outcome.Status)
	assert.Empty(t, outcome.RefinedText)
}

func TestRefine_ModelReportsNoRecipe(t *testing.T) {
	ai := &fakeCompleter{response: `{"no_recipe": true}`}
	r := NewRefiner(ai, refinerConfig(true))

	outcome := r.Refine(context.Background(), descriptionCandidate("【材料】卵 2個"), service.UsageMeta{})

	// 原文仍有內容時保留為非結構化結果
	assert.Equal(t, common.RefinementSuccess, outcome.Status)
	assert.Equal(t, "model reported no recipe", outcome.ErrorDetail)
	assert.Contains(t, outcome.RefinedText, "卵 2個")
}

func TestRefine_Disabled(t *testing.T) {
	ai := &fakeCompleter{}
	r := NewRefiner(ai, refinerConfig(false))

	outcome := r.Refine(context.Background(), descriptionCandidate("【材料】卵 2個"), service.UsageMeta{})

	assert.Equal(t, common.RefinementSkipped, outcome.Status)
	assert.Equal(t, "【材料】卵 2個", outcome.RefinedText)
	assert.Equal(t, 0, ai.calls)
}

func TestRefine_EmptyCandidate(t *testing.T) {
	ai := &fakeCompleter{}
	r := NewRefiner(ai, refinerConfig(true))

	outcome := r.Refine(context.Background(), descriptionCandidate("   "), service.UsageMeta{})

	assert.Equal(t, common.RefinementSkipped, outcome.Status)
	assert.Equal(t, 0, ai.calls)
}

func TestCleanBoilerplate(t *testing.T) {
	cleaned := CleanBoilerplate("材料：卵 2個\n#料理 #レシピ\nMusic by Someone\nInstagram.com/cook\n混ぜて焼く")
	assert.Equal(t, "材料：卵 2個\n混ぜて焼く", cleaned)
}
