package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/libgate/internal/model"
)

// SQLiteLoanRepo はSQLiteを使用した貸出リポジトリ。
// 貸出作成・返却は在庫カウンタと同一トランザクションで実行する。
type SQLiteLoanRepo struct {
	db *sql.DB
}

// NewSQLiteLoanRepo はSQLiteLoanRepoを生成する。
func NewSQLiteLoanRepo(db *sql.DB) *SQLiteLoanRepo {
	return &SQLiteLoanRepo{db: db}
}

const loanColumns = `id, book_id, member_id, loan_date, due_date, return_date, status, fine_amount`

// FindByID は指定IDの貸出を取得する。見つからない場合はnilを返す。
func (r *SQLiteLoanRepo) FindByID(ctx context.Context, id int64) (*model.Loan, error) {
	loan, err := scanLoan(r.db.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find loan by ID: %w", err)
	}
	return loan, nil
}

// Create は在庫カウンタのデクリメントと同一トランザクションで貸出を作成する。
//
// 在庫の減算は条件付きUPDATE（available_copies > 0）で行い、影響行数0を
// ErrCopyUnavailableとして扱う。並行する貸出が同じタイトルに殺到しても、
// 在庫数を超えて成功することはない。
func (r *SQLiteLoanRepo) Create(ctx context.Context, loan *model.Loan) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 会員の存在確認
	var memberExists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM members WHERE id = ? AND is_active = 1)`,
		loan.MemberID,
	).Scan(&memberExists)
	if err != nil {
		return fmt.Errorf("failed to check member: %w", err)
	}
	if !memberExists {
		return ErrNotFound
	}

	// 同一会員・同一タイトルの貸出中レコードは二重貸出として拒否する
	var hasActive bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM loans WHERE book_id = ? AND member_id = ? AND status = 'active')`,
		loan.BookID, loan.MemberID,
	).Scan(&hasActive)
	if err != nil {
		return fmt.Errorf("failed to check active loan: %w", err)
	}
	if hasActive {
		return ErrDuplicateLoan
	}

	// 条件付きデクリメント。影響行数0は在庫なしまたは蔵書不存在。
	result, err := tx.ExecContext(ctx,
		`UPDATE books SET available_copies = available_copies - 1
		 WHERE id = ? AND available_copies > 0`,
		loan.BookID,
	)
	if err != nil {
		return fmt.Errorf("failed to decrement available copies: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		var bookExists bool
		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM books WHERE id = ?)`, loan.BookID,
		).Scan(&bookExists)
		if err != nil {
			return fmt.Errorf("failed to check book: %w", err)
		}
		if !bookExists {
			return ErrNotFound
		}
		return ErrCopyUnavailable
	}

	insertResult, err := tx.ExecContext(ctx,
		`INSERT INTO loans (book_id, member_id, loan_date, due_date, status, fine_amount)
		 VALUES (?, ?, ?, ?, 'active', 0)`,
		loan.BookID, loan.MemberID, loan.LoanDate, loan.DueDate,
	)
	if err != nil {
		return fmt.Errorf("failed to insert loan: %w", err)
	}

	id, err := insertResult.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted loan ID: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	loan.ID = id
	loan.Status = model.LoanStatusActive
	return nil
}

// Return は在庫カウンタのインクリメントと同一トランザクションで貸出を閉じる。
//
// 貸出行の更新はstatus = 'active'を条件とし、影響行数0をErrAlreadyReturned
// （行が存在しない場合はErrNotFound）として扱う。2回目の返却が在庫を
// 二重にインクリメントすることはない。
func (r *SQLiteLoanRepo) Return(ctx context.Context, id int64, returnedAt time.Time, fineAmount float64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var bookID int64
	err = tx.QueryRowContext(ctx,
		`SELECT book_id FROM loans WHERE id = ?`, id,
	).Scan(&bookID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to find loan: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE loans SET return_date = ?, status = 'returned', fine_amount = ?
		 WHERE id = ? AND status = 'active'`,
		returnedAt, fineAmount, id,
	)
	if err != nil {
		return fmt.Errorf("failed to close loan: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrAlreadyReturned
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE books SET available_copies = available_copies + 1 WHERE id = ?`,
		bookID,
	)
	if err != nil {
		return fmt.Errorf("failed to increment available copies: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// List は貸出一覧を貸出日の降順で返す。
func (r *SQLiteLoanRepo) List(ctx context.Context, filter LoanFilter, now time.Time, limit, offset int) ([]*model.Loan, error) {
	q := `SELECT ` + loanColumns + ` FROM loans`
	args := []any{}

	switch filter {
	case LoanFilterActive:
		q += ` WHERE status = 'active'`
	case LoanFilterOverdue:
		q += ` WHERE status = 'active' AND due_date < ?`
		args = append(args, now)
	}
	q += ` ORDER BY loan_date DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	defer rows.Close()

	var loans []*model.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate loans: %w", err)
	}

	return loans, nil
}

// rowScanner はsql.Rowとsql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanLoan は1行を読み取りLoanを構築する。
func scanLoan(row rowScanner) (*model.Loan, error) {
	loan := &model.Loan{}
	var returnDate sql.NullTime
	err := row.Scan(&loan.ID, &loan.BookID, &loan.MemberID,
		&loan.LoanDate, &loan.DueDate, &returnDate, &loan.Status, &loan.FineAmount)
	if err != nil {
		return nil, err
	}
	if returnDate.Valid {
		loan.ReturnDate = &returnDate.Time
	}
	return loan, nil
}

// compile-time interface check
var _ LoanRepository = (*SQLiteLoanRepo)(nil)
