package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/libgate/internal/model"
)

// SQLiteMemberRepo はSQLiteを使用した会員リポジトリ。
type SQLiteMemberRepo struct {
	db *sql.DB
}

// NewSQLiteMemberRepo はSQLiteMemberRepoを生成する。
func NewSQLiteMemberRepo(db *sql.DB) *SQLiteMemberRepo {
	return &SQLiteMemberRepo{db: db}
}

// FindByID は指定IDの会員を取得する。見つからない場合はnilを返す。
func (r *SQLiteMemberRepo) FindByID(ctx context.Context, id int64) (*model.Member, error) {
	member := &model.Member{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, joined_at, is_active FROM members WHERE id = ?`,
		id,
	).Scan(&member.ID, &member.Name, &member.Email, &member.JoinedAt, &member.IsActive)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find member by ID: %w", err)
	}

	return member, nil
}

// Create は会員を作成し、採番されたIDをmemberに書き戻す。
func (r *SQLiteMemberRepo) Create(ctx context.Context, member *model.Member) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO members (name, email, joined_at, is_active) VALUES (?, ?, ?, ?)`,
		member.Name, member.Email, member.JoinedAt, member.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted member ID: %w", err)
	}
	member.ID = id

	return nil
}

// Update は会員情報を更新する。
func (r *SQLiteMemberRepo) Update(ctx context.Context, member *model.Member) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE members SET name = ?, email = ?, is_active = ? WHERE id = ?`,
		member.Name, member.Email, member.IsActive, member.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
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

// List は会員一覧をID昇順で返す。
func (r *SQLiteMemberRepo) List(ctx context.Context, limit, offset int) ([]*model.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email, joined_at, is_active FROM members ORDER BY id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*model.Member
	for rows.Next() {
		member := &model.Member{}
		if err := rows.Scan(&member.ID, &member.Name, &member.Email, &member.JoinedAt, &member.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}

// compile-time interface check
var _ MemberRepository = (*SQLiteMemberRepo)(nil)
