// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/libgate/internal/middleware"
	"github.com/hitoshi/libgate/internal/model"
)

// writeSuccess は統一封筒で成功レスポンスを書き込む。
func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	middleware.WriteSuccessResponse(w, statusCode, data)
}

// writeAPIError は統一封筒でエラーレスポンスを書き込む。
func writeAPIError(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIError(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIError(w, http.StatusInternalServerError, model.NewInternalError())
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidCredentials, model.ErrCodeTokenExpired, model.ErrCodeTokenInvalid:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeInvalidFeatures, model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeModelUnavailable:
		return http.StatusServiceUnavailable
	case model.ErrCodeModelTimeout:
		return http.StatusGatewayTimeout
	case model.ErrCodeCopyUnavailable, model.ErrCodeAlreadyReturned, model.ErrCodeDuplicate:
		return http.StatusConflict
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case model.ErrCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// decodeErrorResponse はリクエストボディ解析失敗の400レスポンスを書き込む。
func decodeErrorResponse(w http.ResponseWriter) {
	writeAPIError(w, http.StatusBadRequest,
		model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
}
