package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/libgate/internal/model"
)

// UserServiceInterface はユーザー管理ハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// ListUsers はユーザー一覧を返す。
	ListUsers(ctx context.Context, limit, offset int) ([]*model.User, error)
	// UpdateRole は指定ユーザーのロールを変更する。
	UpdateRole(ctx context.Context, userID string, role model.Role) error
	// SetActive は指定ユーザーを有効化・無効化する。
	SetActive(ctx context.Context, userID string, active bool) error
}

// UserHandler はユーザー管理のHTTPハンドラー（管理者向け）。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// updateUserRequest はユーザー更新リクエストのボディ。
// 指定されたフィールドのみを更新する。
type updateUserRequest struct {
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// ListUsers はユーザー一覧を返す。
// GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)

	users, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]userResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, toUserResponse(user))
	}

	writeSuccess(w, http.StatusOK, responses)
}

// UpdateUser はユーザーのロール・有効フラグを更新する。
// PUT /api/users/:id
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		decodeErrorResponse(w)
		return
	}

	if req.Role == nil && req.IsActive == nil {
		writeAPIError(w, http.StatusBadRequest,
			model.NewInvalidRequestError("roleまたはis_activeを指定してください"))
		return
	}

	if req.Role != nil {
		role, ok := model.ParseRole(*req.Role)
		if !ok {
			writeAPIError(w, http.StatusBadRequest,
				model.NewInvalidRequestError("roleには admin、librarian、member のいずれかを指定してください"))
			return
		}
		if err := h.service.UpdateRole(r.Context(), userID, role); err != nil {
			handleServiceError(w, err)
			return
		}
	}

	if req.IsActive != nil {
		if err := h.service.SetActive(r.Context(), userID, *req.IsActive); err != nil {
			handleServiceError(w, err)
			return
		}
	}

	writeSuccess(w, http.StatusOK, map[string]string{"message": "ユーザーを更新しました。"})
}

// pageParams はクエリからlimit/offsetを読み取る。不正値は0として返し、
// 範囲の丸めはサービス層に委ねる。
func pageParams(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}
