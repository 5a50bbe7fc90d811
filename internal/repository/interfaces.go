// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/libgate/internal/model"
)

// リポジトリ共通のセンチネルエラー。
// サービス層でAPIエラーに変換する。
var (
	// ErrNotFound は対象行が存在しないことを示す。
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate は一意制約に違反したことを示す。
	ErrDuplicate = errors.New("repository: duplicate")
	// ErrCopyUnavailable は貸出可能な在庫が0であることを示す。
	ErrCopyUnavailable = errors.New("repository: no available copies")
	// ErrAlreadyReturned は返却済みの貸出に対する返却操作を示す。
	ErrAlreadyReturned = errors.New("repository: loan already returned")
	// ErrDuplicateLoan は同一会員が同一タイトルを貸出中であることを示す。
	ErrDuplicateLoan = errors.New("repository: member already has an active loan for this book")
)

// UserRepository は認証ユーザーの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。ユーザー名が重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// List はユーザー一覧を作成日時の降順で返す。
	List(ctx context.Context, limit, offset int) ([]*model.User, error)

	// UpdatePassword はパスワードハッシュを更新する。
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error

	// UpdateRole はロールを更新する。
	UpdateRole(ctx context.Context, id string, role model.Role, updatedAt time.Time) error

	// SetActive は有効フラグを更新する（ソフト無効化）。
	SetActive(ctx context.Context, id string, active bool, updatedAt time.Time) error
}

// BookRepository は蔵書データの永続化インターフェース。
type BookRepository interface {
	// FindByID は指定IDの蔵書を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Book, error)

	// Create は蔵書を作成し、採番されたIDをbookに書き戻す。
	Create(ctx context.Context, book *model.Book) error

	// Update は蔵書の書誌情報を更新する。在庫カウンタは更新しない。
	Update(ctx context.Context, book *model.Book) error

	// Search はタイトル・著者の部分一致と在庫有無で絞り込んだ一覧を返す。
	// queryが空の場合は全件が対象。
	Search(ctx context.Context, query string, availableOnly bool, limit, offset int) ([]*model.Book, error)
}

// MemberRepository は会員データの永続化インターフェース。
type MemberRepository interface {
	// FindByID は指定IDの会員を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Member, error)

	// Create は会員を作成し、採番されたIDをmemberに書き戻す。
	Create(ctx context.Context, member *model.Member) error

	// Update は会員情報を更新する。
	Update(ctx context.Context, member *model.Member) error

	// List は会員一覧をID昇順で返す。
	List(ctx context.Context, limit, offset int) ([]*model.Member, error)
}

// LoanFilter は貸出一覧の絞り込み条件。
type LoanFilter string

const (
	LoanFilterAll     LoanFilter = "all"
	LoanFilterActive  LoanFilter = "active"
	LoanFilterOverdue LoanFilter = "overdue"
)

// LoanRepository は貸出データの永続化インターフェース。
// 貸出作成・返却は在庫カウンタと同一トランザクションで実行し、
// 同一タイトルへの並行貸出が在庫数を超えないことを保証する。
type LoanRepository interface {
	// FindByID は指定IDの貸出を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Loan, error)

	// Create は在庫カウンタのデクリメントと同一トランザクションで貸出を作成する。
	// 在庫0の場合はErrCopyUnavailable、蔵書・会員不存在はErrNotFound、
	// 同一会員が同一タイトルを貸出中の場合はErrDuplicateLoanを返す。
	// 成功時は採番されたIDをloanに書き戻す。
	Create(ctx context.Context, loan *model.Loan) error

	// Return は在庫カウンタのインクリメントと同一トランザクションで貸出を閉じる。
	// 返却済みの場合はErrAlreadyReturned、不存在はErrNotFoundを返す。
	Return(ctx context.Context, id int64, returnedAt time.Time, fineAmount float64) error

	// List は貸出一覧を貸出日の降順で返す。
	// LoanFilterOverdueはnowを基準に延滞中の貸出のみを返す。
	List(ctx context.Context, filter LoanFilter, now time.Time, limit, offset int) ([]*model.Loan, error)
}
