package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, StripCodeFence("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, StripCodeFence("```\n{\"a\": 1}\n```"))
	// 無圍欄時原樣返回
	assert.Equal(t, `{"a": 1}`, StripCodeFence(`{"a": 1}`))
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"no_recipe": true}`,
		ExtractJSONObject("判定結果は以下の通りです。\n{\"no_recipe\": true}\n以上です。"))
	// 沒有 JSON 本體時原樣返回
	assert.Equal(t, "plain text", ExtractJSONObject("plain text"))
}

func TestQuoteJSONKeys(t *testing.T) {
	assert.Equal(t, `{"dish_name": "卵焼き", "steps": ["焼く"]}`,
		QuoteJSONKeys(`{dish_name: "卵焼き", steps: ["焼く"]}`))
}

func TestParseModelJSON(t *testing.T) {
	var v struct {
		DishName string `json:"dish_name"`
	}

	// 圍欄加前置說明
	require.NoError(t, ParseModelJSON("結果：\n```json\n{\"dish_name\": \"卵焼き\"}\n```", &v))
	assert.Equal(t, "卵焼き", v.DishName)

	// 鍵沒加引號時補鍵重試
	v.DishName = ""
	require.NoError(t, ParseModelJSON(`{dish_name: "だし巻き卵"}`, &v))
	assert.Equal(t, "だし巻き卵", v.DishName)

	// 修不好的輸出回報錯誤
	assert.Error(t, ParseModelJSON("ただのテキスト", &v))
}

func TestParseJSON_RejectsTrailingData(t *testing.T) {
	var v map[string]interface{}
	require.NoError(t, ParseJSON(`{"a": 1}`, &v))
	assert.Error(t, ParseJSON(`{"a": 1}{"b": 2}`, &v))
}

func TestFormatIngredient(t *testing.T) {
	assert.Equal(t, "ズッキーニ 1本(200g)", FormatIngredient(Ingredient{
		Name: "ズッキーニ", Amount: "1", Unit: "本", SubAmount: "200", SubUnit: "g",
	}))
	assert.Equal(t, "塩 適量", FormatIngredient(Ingredient{Name: "塩", Unit: "適量"}))
	assert.Equal(t, "お好みのハーブ", FormatIngredient(Ingredient{Name: "お好みのハーブ"}))
}

func TestFormatRecipeText(t *testing.T) {
	text := FormatRecipeText(&RefinedRecipe{
		DishName:    "卵焼き",
		Ingredients: []Ingredient{{Name: "卵", Amount: "2", Unit: "個"}},
		Steps:       []string{"混ぜる", "焼く"},
		Tips:        []string{"弱火で"},
	})
	assert.Contains(t, text, "【料理名】\n卵焼き")
	assert.Contains(t, text, "【材料】\n- 卵 2個")
	assert.Contains(t, text, "【作り方】\n1. 混ぜる\n2. 焼く")
	assert.Contains(t, text, "【コツ・ポイント】\n- 弱火で")

	assert.Empty(t, FormatRecipeText(nil))
}
