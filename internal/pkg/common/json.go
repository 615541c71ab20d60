package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ParseJSON 解析 JSON 字符串到結構體
func ParseJSON(data string, v interface{}) error {
	return decodeJSON(strings.NewReader(data), v, false)
}

// ParseJSONStrict 解析 JSON 字符串到結構體（禁止未知欄位）
func ParseJSONStrict(data string, v interface{}) error {
	return decodeJSON(strings.NewReader(data), v, true)
}

// ParseJSONBytes 解析 JSON 位元組切片到結構體
func ParseJSONBytes(data []byte, v interface{}) error {
	return decodeJSON(bytes.NewReader(data), v, false)
}

// DecodeJSON 使用統一設定解析 JSON
func DecodeJSON(r io.Reader, v interface{}) error {
	return decodeJSON(r, v, false)
}

func decodeJSON(r io.Reader, v interface{}, disallowUnknown bool) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if disallowUnknown {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(v); err != nil {
		return err
	}

	// 確保沒有多餘資料
	for {
		t, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		// 若讀到額外 token，視為錯誤
		if t != nil {
			return fmt.Errorf("unexpected extra JSON data")
		}
	}
}

var unquotedKeyPattern = regexp.MustCompile(`([{\[,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)

// QuoteJSONKeys 將未加雙引號的鍵補上雙引號
func QuoteJSONKeys(raw string) string {
	return unquotedKeyPattern.ReplaceAllString(raw, `$1"$2":`)
}

var (
	fenceOpenPattern  = regexp.MustCompile("^```(?:json)?\\s*")
	fenceClosePattern = regexp.MustCompile("\\s*```$")
)

// StripCodeFence 去除模型輸出常見的 ```json ... ``` 圍欄
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	s = fenceOpenPattern.ReplaceAllString(s, "")
	s = fenceClosePattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ExtractJSONObject 擷取文字中第一個 { 到最後一個 } 的片段
// 模型回應常夾帶前後置說明文字，先截出 JSON 本體再解析
func ExtractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end != -1 && end > start {
		return s[start : end+1]
	}
	return s
}

// ParseModelJSON 解析模型輸出中的 JSON 本體
// 先去圍欄再截出第一個物件；直接解析失敗時補上未加引號的鍵重試一次，
// 重試也失敗才回報最初的解析錯誤
func ParseModelJSON(raw string, v interface{}) error {
	cleaned := ExtractJSONObject(StripCodeFence(raw))
	err := ParseJSON(cleaned, v)
	if err == nil {
		return nil
	}
	if retryErr := ParseJSON(QuoteJSONKeys(cleaned), v); retryErr == nil {
		return nil
	}
	return err
}

// ToJSON 將結構體轉換為 JSON 字符串
func ToJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
