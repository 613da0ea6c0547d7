package utils

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/zhouzirui/consult/backend/internal/apperr"
)

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// ErrorBody 为对外暴露的错误结构，不包含上游原始错误。
type ErrorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Retryable bool   `json:"retryable"`
}

// RespondAppError 根据错误类别映射HTTP状态码，只输出安全的错误信息。
func RespondAppError(w http.ResponseWriter, err error) {
	classified := apperr.Classify(err)
	status := apperr.HTTPStatus(classified)
	if secs, ok := classified.Metadata["retryAfterSeconds"].(int); ok && secs > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed", zap.String("kind", string(classified.Kind)), zap.Error(err))
	}
	RespondJSON(w, status, ErrorBody{
		Error:     apperr.PublicMessage(classified),
		Kind:      string(classified.Kind),
		Retryable: classified.Retryable,
	})
}
