package common

import (
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"message"`           // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Response 轉為 API 錯誤響應，details 帶具體原因
func (e *CustomError) Response(details string) ErrorResponse {
	return ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// ValidationError 表示驗證錯誤（唯一回傳 4xx 的情況）
type ValidationError struct {
	message string
}

// Error 實現 error 介面
func (e *ValidationError) Error() string {
	return e.message
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(message string) error {
	return &ValidationError{
		message: message,
	}
}

// IsValidationError 檢查是否為驗證錯誤
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// 管線內部錯誤
// 除 ValidationError 外，這些都在管線內部恢復，不會變成 HTTP 層錯誤
var (
	// ErrRateLimited 供應商回報 429，前進到備援鏈的下一個模型
	ErrRateLimited = errors.New("provider rate limited")

	// ErrNoRecipe 所有層都未找到有效食譜，屬於正常終態而非錯誤
	ErrNoRecipe = errors.New("no recipe detected")

	// ErrRecordNotFound 快取帳本中無對應記錄
	ErrRecordNotFound = errors.New("extraction record not found")

	// ErrRecordConflict 同一影片已有記錄，落敗的寫入方視為快取命中
	ErrRecordConflict = errors.New("extraction record already exists")

	// ErrMediaResolution 無法取得可供視覺模型使用的媒體位址
	ErrMediaResolution = errors.New("media resolution failed")

	// ErrChainExhausted 備援鏈全部失敗
	ErrChainExhausted = errors.New("all models in fallback chain failed")
)

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest  = "INVALID_REQUEST"     // 400
	ErrCodeBodyTooLarge    = "REQUEST_TOO_LARGE"   // 413
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS"   // 429

	// 服務器錯誤 (5xx)
	ErrCodeInternalError  = "INTERNAL_ERROR"  // 500
	ErrCodeGatewayTimeout = "GATEWAY_TIMEOUT" // 504
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "無效的請求", http.StatusBadRequest, nil)
	ErrBodyTooLarge    = NewError(ErrCodeBodyTooLarge, "請求體過大", http.StatusRequestEntityTooLarge, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "請求過於頻繁", http.StatusTooManyRequests, nil)

	// 服務器錯誤
	ErrInternalError   = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)
	ErrGatewayTimeout  = NewError(ErrCodeGatewayTimeout, "請求處理超時", http.StatusGatewayTimeout, nil)

	// 業務錯誤
	ErrInvalidVideoURL  = NewError("INVALID_VIDEO_URL", "無法解析的影片網址", http.StatusBadRequest, nil)
	ErrExtractionFailed = NewError("EXTRACTION_ERROR", "食譜抽取失敗", http.StatusInternalServerError, nil)
	ErrMetadataFetch    = NewError("METADATA_ERROR", "影片中繼資料獲取失敗", http.StatusInternalServerError, nil)
	ErrUsageQuery       = NewError("USAGE_QUERY_ERROR", "用量紀錄查詢失敗", http.StatusInternalServerError, nil)
)
