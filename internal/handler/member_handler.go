package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/libgate/internal/model"
)

// MemberServiceInterface は会員ハンドラーが必要とするサービスインターフェース。
type MemberServiceInterface interface {
	// CreateMember は会員を登録する。
	CreateMember(ctx context.Context, member *model.Member) error
	// GetMember は会員を取得する。
	GetMember(ctx context.Context, id int64) (*model.Member, error)
	// UpdateMember は会員情報を更新する。
	UpdateMember(ctx context.Context, member *model.Member) error
	// ListMembers は会員一覧を返す。
	ListMembers(ctx context.Context, limit, offset int) ([]*model.Member, error)
}

// MemberHandler は会員管理のHTTPハンドラー。
type MemberHandler struct {
	service MemberServiceInterface
}

// NewMemberHandler はMemberHandlerを生成する。
func NewMemberHandler(service MemberServiceInterface) *MemberHandler {
	return &MemberHandler{service: service}
}

// memberRequest は会員の登録・更新リクエストのボディ。
type memberRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// memberResponse は会員情報のAPIレスポンス。
type memberResponse struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	JoinedAt time.Time `json:"joined_at"`
	IsActive bool      `json:"is_active"`
}

// ListMembers は会員一覧を返す。
// GET /api/members
func (h *MemberHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)

	members, err := h.service.ListMembers(r.Context(), limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]memberResponse, 0, len(members))
	for _, member := range members {
		responses = append(responses, toMemberResponse(member))
	}

	writeSuccess(w, http.StatusOK, responses)
}

// GetMember は会員詳細を取得する。
// GET /api/members/:id
func (h *MemberHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "id")
	if !ok {
		writeAPIError(w, http.StatusBadRequest, model.NewInvalidRequestError("idは整数で指定してください"))
		return
	}

	member, err := h.service.GetMember(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, toMemberResponse(member))
}

// CreateMember は会員を登録する。
// POST /api/members
func (h *MemberHandler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		decodeErrorResponse(w)
		return
	}

	member := &model.Member{
		Name:  req.Name,
		Email: req.Email,
	}

	if err := h.service.CreateMember(r.Context(), member); err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, toMemberResponse(member))
}

// UpdateMember は会員情報を更新する。
// PUT /api/members/:id
func (h *MemberHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "id")
	if !ok {
		writeAPIError(w, http.StatusBadRequest, model.NewInvalidRequestError("idは整数で指定してください"))
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		decodeErrorResponse(w)
		return
	}

	current, err := h.service.GetMember(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	current.Name = req.Name
	current.Email = req.Email
	if req.IsActive != nil {
		current.IsActive = *req.IsActive
	}

	if err := h.service.UpdateMember(r.Context(), current); err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, toMemberResponse(current))
}

// toMemberResponse はmodel.MemberからAPIレスポンスに変換する。
func toMemberResponse(member *model.Member) memberResponse {
	return memberResponse{
		ID:       member.ID,
		Name:     member.Name,
		Email:    member.Email,
		JoinedAt: member.JoinedAt,
		IsActive: member.IsActive,
	}
}
