package extract

import (
	"regexp"
	"strings"

	"recipe-extractor/internal/pkg/common"
)

// 食材行的數量樣式
// 主要分量為行內第一組「數字+單位」，括號內的第二組進 sub_amount/sub_unit
var (
	amountPattern = regexp.MustCompile(`([0-9０-９]+(?:[./][0-9０-９]+)?)\s*([^\s0-9０-９(（)）:：]*)`)
	subPattern    = regexp.MustCompile(`[(（]\s*(?:約)?([0-9０-９]+(?:[.][0-9０-９]+)?)\s*([^)）]*?)\s*[)）]`)
)

// ParseIngredient 解析單行食材文字為結構化食材
// 例：「ズッキーニ1本(200g)」→ {name: ズッキーニ, amount: 1, unit: 本, sub_amount: 200, sub_unit: g}
// 也接受「卵: 2個」的冒號分隔形式
// 解析不出分量時整行當作名稱，不丟錯
func ParseIngredient(line string) common.Ingredient {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "・")
	line = strings.TrimPrefix(line, "-")
	line = strings.TrimSpace(line)

	if line == "" {
		return common.Ingredient{}
	}

	ing := common.Ingredient{}

	// 括號內的換算單位先取出並移除，避免干擾主要分量的切分
	rest := line
	if m := subPattern.FindStringSubmatchIndex(rest); m != nil {
		sub := subPattern.FindStringSubmatch(rest)
		ing.SubAmount = normalizeDigits(sub[1])
		ing.SubUnit = strings.TrimSpace(sub[2])
		rest = strings.TrimSpace(rest[:m[0]] + rest[m[1]:])
	}

	// 冒號分隔形式：「名前: 分量」
	name := rest
	quantity := ""
	for _, sep := range []string{"：", ":"} {
		if idx := strings.Index(rest, sep); idx >= 0 {
			name = strings.TrimSpace(rest[:idx])
			quantity = strings.TrimSpace(rest[idx+len(sep):])
			break
		}
	}

	// 無冒號時找第一個數字的位置，前段為名稱
	if quantity == "" {
		if loc := amountPattern.FindStringIndex(rest); loc != nil && loc[0] > 0 {
			name = strings.TrimSpace(rest[:loc[0]])
			quantity = strings.TrimSpace(rest[loc[0]:])
		} else if loc != nil && loc[0] == 0 {
			// 整行以數字開頭，當成沒有名稱的分量
			name = ""
			quantity = rest
		}
	}

	ing.Name = name
	if quantity != "" {
		if m := amountPattern.FindStringSubmatch(quantity); m != nil && m[1] != "" {
			ing.Amount = normalizeDigits(m[1])
			ing.Unit = strings.TrimSpace(m[2])
		} else {
			// 「適量」「少々」等無數字的分量整個當單位
			ing.Unit = quantity
		}
	}

	if ing.Name == "" && ing.Amount == "" {
		ing.Name = line
	}
	return ing
}

// ParseIngredients 解析多行食材
func ParseIngredients(lines []string) []common.Ingredient {
	ingredients := make([]common.Ingredient, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		ingredients = append(ingredients, ParseIngredient(line))
	}
	return ingredients
}

// normalizeDigits 全形數字轉半形
func normalizeDigits(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '０' && r <= '９' {
			sb.WriteRune(r - '０' + '0')
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
