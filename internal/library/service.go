// Package library は蔵書・会員・貸出の管理サービスを提供する。
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/hitoshi/libgate/internal/model"
	"github.com/hitoshi/libgate/internal/repository"
)

const (
	// defaultLoanPeriod は貸出期間。3週間。
	defaultLoanPeriod = 21 * 24 * time.Hour
	// finePerDay は延滞1日あたりの延滞料金（ドル）。
	finePerDay = 0.50
	// defaultPageSize は一覧取得のデフォルト件数。
	defaultPageSize = 50
	// maxPageSize は一覧取得の最大件数。
	maxPageSize = 100
)

// Service は図書館データのビジネスロジックを提供する。
type Service struct {
	books   repository.BookRepository
	members repository.MemberRepository
	loans   repository.LoanRepository
	now     func() time.Time
}

// NewService はServiceを生成する。
func NewService(books repository.BookRepository, members repository.MemberRepository, loans repository.LoanRepository) *Service {
	return &Service{
		books:   books,
		members: members,
		loans:   loans,
		now:     time.Now,
	}
}

// --- 蔵書 ---

// CreateBook は蔵書を登録する。在庫は全冊貸出可能の状態で始まる。
func (s *Service) CreateBook(ctx context.Context, book *model.Book) error {
	if book.Title == "" {
		return model.NewInvalidRequestError("タイトルは必須です")
	}
	if book.TotalCopies <= 0 {
		book.TotalCopies = 1
	}
	book.AvailableCopies = book.TotalCopies
	book.CreatedAt = s.now()

	if err := s.books.Create(ctx, book); err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

// GetBook は蔵書を取得する。
func (s *Service) GetBook(ctx context.Context, id int64) (*model.Book, error) {
	book, err := s.books.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find book: %w", err)
	}
	if book == nil {
		return nil, model.NewNotFoundError("蔵書")
	}
	return book, nil
}

// UpdateBook は蔵書の書誌情報を更新する。在庫カウンタには触れない。
func (s *Service) UpdateBook(ctx context.Context, book *model.Book) error {
	if book.Title == "" {
		return model.NewInvalidRequestError("タイトルは必須です")
	}
	if err := s.books.Update(ctx, book); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewNotFoundError("蔵書")
		}
		return fmt.Errorf("failed to update book: %w", err)
	}
	return nil
}

// SearchBooks はタイトル・著者の部分一致検索を行う。
func (s *Service) SearchBooks(ctx context.Context, query string, availableOnly bool, limit, offset int) ([]*model.Book, error) {
	limit, offset = clampPage(limit, offset)
	return s.books.Search(ctx, query, availableOnly, limit, offset)
}

// --- 会員 ---

// CreateMember は会員を登録する。
func (s *Service) CreateMember(ctx context.Context, member *model.Member) error {
	if member.Name == "" {
		return model.NewInvalidRequestError("会員名は必須です")
	}
	member.JoinedAt = s.now()
	member.IsActive = true

	if err := s.members.Create(ctx, member); err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}
	return nil
}

// GetMember は会員を取得する。
func (s *Service) GetMember(ctx context.Context, id int64) (*model.Member, error) {
	member, err := s.members.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find member: %w", err)
	}
	if member == nil {
		return nil, model.NewNotFoundError("会員")
	}
	return member, nil
}

// UpdateMember は会員情報を更新する。
func (s *Service) UpdateMember(ctx context.Context, member *model.Member) error {
	if member.Name == "" {
		return model.NewInvalidRequestError("会員名は必須です")
	}
	if err := s.members.Update(ctx, member); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewNotFoundError("会員")
		}
		return fmt.Errorf("failed to update member: %w", err)
	}
	return nil
}

// ListMembers は会員一覧を返す。
func (s *Service) ListMembers(ctx context.Context, limit, offset int) ([]*model.Member, error) {
	limit, offset = clampPage(limit, offset)
	return s.members.List(ctx, limit, offset)
}

// --- 貸出 ---

// CreateLoan は貸出を作成する。
//
// 在庫カウンタのデクリメントは貸出行の作成と同一トランザクションで行われ、
// 在庫1冊への並行貸出はちょうど1件だけが成功する。在庫0はCOPY_UNAVAILABLE、
// 同一会員の二重貸出はDUPLICATEとして返す。
func (s *Service) CreateLoan(ctx context.Context, bookID, memberID int64) (*model.Loan, error) {
	now := s.now()
	loan := &model.Loan{
		BookID:   bookID,
		MemberID: memberID,
		LoanDate: now,
		DueDate:  now.Add(defaultLoanPeriod),
	}

	if err := s.loans.Create(ctx, loan); err != nil {
		switch {
		case errors.Is(err, repository.ErrCopyUnavailable):
			return nil, model.NewCopyUnavailableError(bookID)
		case errors.Is(err, repository.ErrNotFound):
			return nil, model.NewNotFoundError("蔵書または会員")
		case errors.Is(err, repository.ErrDuplicateLoan):
			return nil, model.NewDuplicateError("この会員は同じ蔵書をすでに借りています。")
		}
		return nil, fmt.Errorf("failed to create loan: %w", err)
	}

	slog.Info("loan created",
		slog.Int64("loan_id", loan.ID),
		slog.Int64("book_id", bookID),
		slog.Int64("member_id", memberID),
		slog.Time("due_date", loan.DueDate),
	)

	return loan, nil
}

// ReturnLoan は貸出を返却する。
//
// 延滞していた場合は日割りの延滞料金を計算して貸出記録に残す。
// すでに返却済みの貸出はALREADY_RETURNEDを返し、在庫カウンタを
// 二重にインクリメントすることはない。
func (s *Service) ReturnLoan(ctx context.Context, loanID int64) (*model.Loan, error) {
	loan, err := s.loans.FindByID(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to find loan: %w", err)
	}
	if loan == nil {
		return nil, model.NewNotFoundError("貸出")
	}

	now := s.now()
	fine := fineFor(loan.DueDate, now)

	if err := s.loans.Return(ctx, loanID, now, fine); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyReturned):
			return nil, model.NewAlreadyReturnedError(loanID)
		case errors.Is(err, repository.ErrNotFound):
			return nil, model.NewNotFoundError("貸出")
		}
		return nil, fmt.Errorf("failed to return loan: %w", err)
	}

	if fine > 0 {
		slog.Info("overdue fine charged",
			slog.Int64("loan_id", loanID),
			slog.Float64("fine_amount", fine),
		)
	}

	loan.ReturnDate = &now
	loan.Status = model.LoanStatusReturned
	loan.FineAmount = fine
	return loan, nil
}

// ListLoans は貸出一覧を返す。
func (s *Service) ListLoans(ctx context.Context, filter repository.LoanFilter, limit, offset int) ([]*model.Loan, error) {
	switch filter {
	case repository.LoanFilterAll, repository.LoanFilterActive, repository.LoanFilterOverdue:
	case "":
		filter = repository.LoanFilterAll
	default:
		return nil, model.NewInvalidRequestError("filterには all、active、overdue のいずれかを指定してください")
	}

	limit, offset = clampPage(limit, offset)
	return s.loans.List(ctx, filter, s.now(), limit, offset)
}

// fineFor は返却時点の延滞料金を返す。延滞なしは0。
func fineFor(dueDate, returnedAt time.Time) float64 {
	if !returnedAt.After(dueDate) {
		return 0
	}
	overdueDays := math.Ceil(returnedAt.Sub(dueDate).Hours() / 24)
	return overdueDays * finePerDay
}

// clampPage はページングパラメータを有効範囲に丸める。
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
