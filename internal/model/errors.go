// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, policy, prediction, library, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeTokenExpired       = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid       = "TOKEN_INVALID"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInvalidFeatures    = "INVALID_FEATURES"
	ErrCodeModelUnavailable   = "MODEL_UNAVAILABLE"
	ErrCodeModelTimeout       = "MODEL_TIMEOUT"
	ErrCodeCopyUnavailable    = "COPY_UNAVAILABLE"
	ErrCodeAlreadyReturned    = "ALREADY_RETURNED"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeDuplicate          = "DUPLICATE"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// ユーザー不存在・パスワード不一致・アカウント停止を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "認証情報を確認して再度ログインしてください。",
	}
}

// NewTokenExpiredError はトークン期限切れエラーを生成する。
func NewTokenExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenExpired,
		Message:  "トークンの有効期限が切れています。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewTokenInvalidError はトークン不正エラーを生成する。
// 署名不一致・形式不正など、期限切れ以外の全ての検証失敗に使う。
func NewTokenInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenInvalid,
		Message:  "トークンが不正です。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewForbiddenError はアクセスポリシーによる拒否エラーを生成する。
func NewForbiddenError(role Role) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  fmt.Sprintf("ロール %s にはこの操作の権限がありません。", role),
		Category: "policy",
		Action:   "必要な権限を持つアカウントでログインしてください。",
	}
}

// NewInvalidFeaturesError は特徴量スキーマ不一致エラーを生成する。
func NewInvalidFeaturesError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFeatures,
		Message:  fmt.Sprintf("特徴量がモデルのスキーマと一致しません: %s", reason),
		Category: "prediction",
		Action:   "モデルが要求する特徴量の名前と型を確認してください。",
	}
}

// NewModelUnavailableError はモデル利用不可エラーを生成する。
// 起動時のロードに失敗したモデル、または未登録のモデルに対して返す。
func NewModelUnavailableError(modelName string) *APIError {
	return &APIError{
		Code:     ErrCodeModelUnavailable,
		Message:  fmt.Sprintf("モデル %s は現在利用できません。", modelName),
		Category: "prediction",
		Action:   "別のモデルを指定するか、しばらく待ってから再度お試しください。",
	}
}

// NewModelTimeoutError は予測タイムアウトエラーを生成する。
func NewModelTimeoutError(modelName string) *APIError {
	return &APIError{
		Code:     ErrCodeModelTimeout,
		Message:  fmt.Sprintf("モデル %s の予測が制限時間内に完了しませんでした。", modelName),
		Category: "prediction",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewCopyUnavailableError は在庫なしエラーを生成する。
func NewCopyUnavailableError(bookID int64) *APIError {
	return &APIError{
		Code:     ErrCodeCopyUnavailable,
		Message:  fmt.Sprintf("蔵書 %d に貸出可能な在庫がありません。", bookID),
		Category: "library",
		Action:   "返却を待つか、別の蔵書を選択してください。",
	}
}

// NewAlreadyReturnedError は返却済み貸出への返却操作エラーを生成する。
func NewAlreadyReturnedError(loanID int64) *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyReturned,
		Message:  fmt.Sprintf("貸出 %d はすでに返却済みです。", loanID),
		Category: "library",
		Action:   "貸出IDを確認してください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエスト数が制限を超えました。",
		Category: "system",
		Action:   "時間をおいてから再度お試しください。",
	}
}

// NewNotFoundError は対象リソース未検出エラーを生成する。
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("%sが見つかりません。", resource),
		Category: "library",
		Action:   "IDを確認してください。",
	}
}

// NewDuplicateError は一意制約違反エラーを生成する。
func NewDuplicateError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicate,
		Message:  reason,
		Category: "validation",
		Action:   "入力値を変更して再度お試しください。",
	}
}

// NewInvalidRequestError はリクエスト形式不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエストの形式を確認してください。",
	}
}

// NewInternalError は内部エラーを生成する。
// 詳細はログのみに記録し、呼び出し元には一般的なメッセージだけを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
