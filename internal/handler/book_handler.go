package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/libgate/internal/model"
)

// BookServiceInterface は蔵書ハンドラーが必要とするサービスインターフェース。
type BookServiceInterface interface {
	// CreateBook は蔵書を登録する。
	CreateBook(ctx context.Context, book *model.Book) error
	// GetBook は蔵書を取得する。
	GetBook(ctx context.Context, id int64) (*model.Book, error)
	// UpdateBook は蔵書の書誌情報を更新する。
	UpdateBook(ctx context.Context, book *model.Book) error
	// SearchBooks はタイトル・著者の部分一致検索を行う。
	SearchBooks(ctx context.Context, query string, availableOnly bool, limit, offset int) ([]*model.Book, error)
}

// BookHandler は蔵書カタログのHTTPハンドラー。
type BookHandler struct {
	service BookServiceInterface
}

// NewBookHandler はBookHandlerを生成する。
func NewBookHandler(service BookServiceInterface) *BookHandler {
	return &BookHandler{service: service}
}

// bookRequest は蔵書の登録・更新リクエストのボディ。
type bookRequest struct {
	ISBN            string `json:"isbn"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Genre           string `json:"genre"`
	PublicationYear int    `json:"publication_year"`
	TotalCopies     int    `json:"total_copies"`
}

// bookResponse は蔵書情報のAPIレスポンス。
type bookResponse struct {
	ID              int64     `json:"id"`
	ISBN            string    `json:"isbn"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Genre           string    `json:"genre"`
	PublicationYear int       `json:"publication_year"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	CreatedAt       time.Time `json:"created_at"`
}

// SearchBooks は蔵書を検索する。
// GET /api/books?q=...&available_only=true&limit=...&offset=...
func (h *BookHandler) SearchBooks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	availableOnly := r.URL.Query().Get("available_only") == "true"
	limit, offset := pageParams(r)

	books, err := h.service.SearchBooks(r.Context(), query, availableOnly, limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]bookResponse, 0, len(books))
	for _, book := range books {
		responses = append(responses, toBookResponse(book))
	}

	writeSuccess(w, http.StatusOK, responses)
}

// GetBook は蔵書詳細を取得する。
// GET /api/books/:id
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "id")
	if !ok {
		writeAPIError(w, http.StatusBadRequest, model.NewInvalidRequestError("idは整数で指定してください"))
		return
	}

	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, toBookResponse(book))
}

// CreateBook は蔵書を登録する。
// POST /api/books
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		decodeErrorResponse(w)
		return
	}

	book := &model.Book{
		ISBN:            req.ISBN,
		Title:           req.Title,
		Author:          req.Author,
		Genre:           req.Genre,
		PublicationYear: req.PublicationYear,
		TotalCopies:     req.TotalCopies,
	}

	if err := h.service.CreateBook(r.Context(), book); err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, toBookResponse(book))
}

// UpdateBook は蔵書の書誌情報を更新する。在庫カウンタは変更できない。
// PUT /api/books/:id
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "id")
	if !ok {
		writeAPIError(w, http.StatusBadRequest, model.NewInvalidRequestError("idは整数で指定してください"))
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		decodeErrorResponse(w)
		return
	}

	book := &model.Book{
		ID:              id,
		ISBN:            req.ISBN,
		Title:           req.Title,
		Author:          req.Author,
		Genre:           req.Genre,
		PublicationYear: req.PublicationYear,
	}

	if err := h.service.UpdateBook(r.Context(), book); err != nil {
		handleServiceError(w, err)
		return
	}

	updated, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, toBookResponse(updated))
}

// int64Param はURLパラメータを整数として読み取る。
func int64Param(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// toBookResponse はmodel.BookからAPIレスポンスに変換する。
func toBookResponse(book *model.Book) bookResponse {
	return bookResponse{
		ID:              book.ID,
		ISBN:            book.ISBN,
		Title:           book.Title,
		Author:          book.Author,
		Genre:           book.Genre,
		PublicationYear: book.PublicationYear,
		TotalCopies:     book.TotalCopies,
		AvailableCopies: book.AvailableCopies,
		CreatedAt:       book.CreatedAt,
	}
}
