package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/libgate/internal/middleware"
	"github.com/hitoshi/libgate/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Login は資格情報を検証しトークンを発行する。
	Login(ctx context.Context, username, password string) (*model.TokenPair, error)
	// Register は新規ユーザーをMemberロールで作成する。
	Register(ctx context.Context, username, password string) (*model.User, error)
	// ChangePassword は本人のパスワードを変更する。
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}

// LoginRecorder はログイン試行の結果を記録するインターフェース。
type LoginRecorder interface {
	RecordLogin(result string)
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	recorder LoginRecorder
}

// NewAuthHandler はAuthHandlerを生成する。recorderはnilでもよい。
func NewAuthHandler(service AuthServiceInterface, recorder LoginRecorder) *AuthHandler {
	return &AuthHandler{
		service:  service,
		recorder: recorder,
	}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse はログイン成功時のレスポンス。
type loginResponse struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// changePasswordRequest はパスワード変更リクエストのボディ。
type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// userResponse はユーザー情報のAPIレスポンス。パスワードハッシュは含めない。
type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// verifyResponse はトークン検証結果のレスポンス。
type verifyResponse struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login はログインを処理する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		decodeErrorResponse(w)
		return
	}

	if req.Username == "" || req.Password == "" {
		writeAPIError(w, http.StatusBadRequest,
			model.NewInvalidRequestError("ユーザー名とパスワードは必須です"))
		return
	}

	pair, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.recordLogin("failure")
		handleServiceError(w, err)
		return
	}

	h.recordLogin("success")
	writeSuccess(w, http.StatusOK, loginResponse{
		Token:     pair.Token,
		Role:      string(pair.Role),
		ExpiresAt: pair.ExpiresAt,
	})
}

// Register はユーザー登録を処理する。新規ユーザーは常にMemberロール。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		decodeErrorResponse(w)
		return
	}

	user, err := h.service.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, toUserResponse(user))
}

// Verify は現在のトークンの検証結果を返す。
// トークンミドルウェアを通過した時点で検証は完了しているため、
// コンテキストの認証主体をそのまま返す。
// GET /api/auth/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIError(w, http.StatusUnauthorized, model.NewTokenInvalidError())
		return
	}

	writeSuccess(w, http.StatusOK, verifyResponse{
		UserID: principal.UserID,
		Role:   string(principal.Role),
	})
}

// ChangePassword は本人のパスワード変更を処理する。
// POST /api/auth/password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIError(w, http.StatusUnauthorized, model.NewTokenInvalidError())
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		decodeErrorResponse(w)
		return
	}

	if err := h.service.ChangePassword(r.Context(), principal.UserID, req.OldPassword, req.NewPassword); err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"message": "パスワードを変更しました。"})
}

// recordLogin はメトリクスにログイン結果を記録する。
func (h *AuthHandler) recordLogin(result string) {
	if h.recorder != nil {
		h.recorder.RecordLogin(result)
	}
}

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Username:  user.Username,
		Role:      string(user.Role),
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	}
}
