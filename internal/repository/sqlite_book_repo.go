package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/libgate/internal/model"
)

// SQLiteBookRepo はSQLiteを使用した蔵書リポジトリ。
type SQLiteBookRepo struct {
	db *sql.DB
}

// NewSQLiteBookRepo はSQLiteBookRepoを生成する。
func NewSQLiteBookRepo(db *sql.DB) *SQLiteBookRepo {
	return &SQLiteBookRepo{db: db}
}

const bookColumns = `id, isbn, title, author, genre, publication_year, total_copies, available_copies, created_at`

// FindByID は指定IDの蔵書を取得する。見つからない場合はnilを返す。
func (r *SQLiteBookRepo) FindByID(ctx context.Context, id int64) (*model.Book, error) {
	book := &model.Book{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ?`,
		id,
	).Scan(&book.ID, &book.ISBN, &book.Title, &book.Author, &book.Genre,
		&book.PublicationYear, &book.TotalCopies, &book.AvailableCopies, &book.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find book by ID: %w", err)
	}

	return book, nil
}

// Create は蔵書を作成し、採番されたIDをbookに書き戻す。
func (r *SQLiteBookRepo) Create(ctx context.Context, book *model.Book) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO books (isbn, title, author, genre, publication_year, total_copies, available_copies, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ISBN, book.Title, book.Author, book.Genre,
		book.PublicationYear, book.TotalCopies, book.AvailableCopies, book.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert book: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted book ID: %w", err)
	}
	book.ID = id

	return nil
}

// Update は蔵書の書誌情報を更新する。在庫カウンタは更新しない。
// 在庫はCreate時の初期値と貸出・返却トランザクションだけが変更する。
func (r *SQLiteBookRepo) Update(ctx context.Context, book *model.Book) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE books SET isbn = ?, title = ?, author = ?, genre = ?, publication_year = ?
		 WHERE id = ?`,
		book.ISBN, book.Title, book.Author, book.Genre, book.PublicationYear, book.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Search はタイトル・著者の部分一致と在庫有無で絞り込んだ一覧を返す。
// queryが空の場合は全件が対象。
func (r *SQLiteBookRepo) Search(ctx context.Context, query string, availableOnly bool, limit, offset int) ([]*model.Book, error) {
	q := `SELECT ` + bookColumns + ` FROM books WHERE 1 = 1`
	args := []any{}

	if query != "" {
		q += ` AND (title LIKE ? OR author LIKE ?)`
		pattern := "%" + query + "%"
		args = append(args, pattern, pattern)
	}
	if availableOnly {
		q += ` AND available_copies > 0`
	}
	q += ` ORDER BY title, id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search books: %w", err)
	}
	defer rows.Close()

	var books []*model.Book
	for rows.Next() {
		book := &model.Book{}
		if err := rows.Scan(&book.ID, &book.ISBN, &book.Title, &book.Author, &book.Genre,
			&book.PublicationYear, &book.TotalCopies, &book.AvailableCopies, &book.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate books: %w", err)
	}

	return books, nil
}

// compile-time interface check
var _ BookRepository = (*SQLiteBookRepo)(nil)
