package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/libgate/internal/model"
	"github.com/hitoshi/libgate/internal/repository"
)

// LoanServiceInterface は貸出ハンドラーが必要とするサービスインターフェース。
type LoanServiceInterface interface {
	// CreateLoan は貸出を作成する。在庫デクリメントと同一トランザクションで行う。
	CreateLoan(ctx context.Context, bookID, memberID int64) (*model.Loan, error)
	// ReturnLoan は貸出を返却し、延滞料金を計算する。
	ReturnLoan(ctx context.Context, loanID int64) (*model.Loan, error)
	// ListLoans は貸出一覧を返す。
	ListLoans(ctx context.Context, filter repository.LoanFilter, limit, offset int) ([]*model.Loan, error)
}

// LoanRecorder は貸出・返却の件数を記録するインターフェース。
type LoanRecorder interface {
	RecordLoanCreated()
	RecordLoanReturned()
}

// LoanHandler は貸出管理のHTTPハンドラー。
type LoanHandler struct {
	service  LoanServiceInterface
	recorder LoanRecorder
}

// NewLoanHandler はLoanHandlerを生成する。recorderはnilでもよい。
func NewLoanHandler(service LoanServiceInterface, recorder LoanRecorder) *LoanHandler {
	return &LoanHandler{
		service:  service,
		recorder: recorder,
	}
}

// createLoanRequest は貸出作成リクエストのボディ。
type createLoanRequest struct {
	BookID   int64 `json:"book_id"`
	MemberID int64 `json:"member_id"`
}

// loanResponse は貸出情報のAPIレスポンス。
type loanResponse struct {
	ID         int64      `json:"id"`
	BookID     int64      `json:"book_id"`
	MemberID   int64      `json:"member_id"`
	LoanDate   time.Time  `json:"loan_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	Status     string     `json:"status"`
	FineAmount float64    `json:"fine_amount"`
}

// ListLoans は貸出一覧を返す。
// GET /api/loans?filter=all|active|overdue
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	filter := repository.LoanFilter(r.URL.Query().Get("filter"))
	limit, offset := pageParams(r)

	loans, err := h.service.ListLoans(r.Context(), filter, limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]loanResponse, 0, len(loans))
	for _, loan := range loans {
		responses = append(responses, toLoanResponse(loan))
	}

	writeSuccess(w, http.StatusOK, responses)
}

// CreateLoan は貸出を作成する。
// POST /api/loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req createLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		decodeErrorResponse(w)
		return
	}

	if req.BookID <= 0 || req.MemberID <= 0 {
		writeAPIError(w, http.StatusBadRequest,
			model.NewInvalidRequestError("book_idとmember_idは必須です"))
		return
	}

	loan, err := h.service.CreateLoan(r.Context(), req.BookID, req.MemberID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.recorder != nil {
		h.recorder.RecordLoanCreated()
	}
	writeSuccess(w, http.StatusCreated, toLoanResponse(loan))
}

// ReturnLoan は貸出を返却する。
// POST /api/loans/:id/return
func (h *LoanHandler) ReturnLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "id")
	if !ok {
		writeAPIError(w, http.StatusBadRequest, model.NewInvalidRequestError("idは整数で指定してください"))
		return
	}

	loan, err := h.service.ReturnLoan(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.recorder != nil {
		h.recorder.RecordLoanReturned()
	}
	writeSuccess(w, http.StatusOK, toLoanResponse(loan))
}

// toLoanResponse はmodel.LoanからAPIレスポンスに変換する。
func toLoanResponse(loan *model.Loan) loanResponse {
	return loanResponse{
		ID:         loan.ID,
		BookID:     loan.BookID,
		MemberID:   loan.MemberID,
		LoanDate:   loan.LoanDate,
		DueDate:    loan.DueDate,
		ReturnDate: loan.ReturnDate,
		Status:     string(loan.Status),
		FineAmount: loan.FineAmount,
	}
}
