package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/libgate/internal/auth"
	"github.com/hitoshi/libgate/internal/model"
	"github.com/hitoshi/libgate/internal/repository"
)

// seedUser はシードで投入するユーザーの定義。
type seedUser struct {
	username string
	password string
	role     model.Role
}

// defaultUsers は開発環境用のデフォルトユーザー。
// 本番環境では投入後にパスワードを変更すること。
var defaultUsers = []seedUser{
	{username: "admin", password: "admin123", role: model.RoleAdmin},
	{username: "librarian", password: "lib123", role: model.RoleLibrarian},
	{username: "member", password: "member123", role: model.RoleMember},
}

// Seed はデフォルトユーザーとサンプルの蔵書・会員データを投入する。
// 既存のユーザー名・データはスキップし、何度実行しても安全に動作する。
func Seed(ctx context.Context, db *sql.DB) error {
	userRepo := repository.NewSQLiteUserRepo(db)
	bookRepo := repository.NewSQLiteBookRepo(db)
	memberRepo := repository.NewSQLiteMemberRepo(db)

	if err := seedUsers(ctx, userRepo); err != nil {
		return err
	}
	if err := seedBooks(ctx, bookRepo); err != nil {
		return err
	}
	if err := seedMembers(ctx, memberRepo); err != nil {
		return err
	}

	return nil
}

// seedUsers はデフォルトユーザーを投入する。既存ユーザー名はスキップする。
func seedUsers(ctx context.Context, users repository.UserRepository) error {
	now := time.Now()

	for _, su := range defaultUsers {
		existing, err := users.FindByUsername(ctx, su.username)
		if err != nil {
			return fmt.Errorf("failed to check user %s: %w", su.username, err)
		}
		if existing != nil {
			slog.Info("seed user already exists, skipping",
				slog.String("username", su.username),
			)
			continue
		}

		hash, err := auth.HashPassword(su.password)
		if err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", su.username, err)
		}

		user := &model.User{
			ID:           uuid.New().String(),
			Username:     su.username,
			PasswordHash: hash,
			Role:         su.role,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := users.Create(ctx, user); err != nil {
			return fmt.Errorf("failed to create user %s: %w", su.username, err)
		}

		slog.Info("seed user created",
			slog.String("username", su.username),
			slog.String("role", string(su.role)),
		)
	}

	return nil
}

// seedBooks はサンプル蔵書を投入する。既に蔵書がある場合は何もしない。
func seedBooks(ctx context.Context, books repository.BookRepository) error {
	existing, err := books.Search(ctx, "", false, 1, 0)
	if err != nil {
		return fmt.Errorf("failed to check books: %w", err)
	}
	if len(existing) > 0 {
		slog.Info("books already exist, skipping seed")
		return nil
	}

	now := time.Now()
	samples := []*model.Book{
		{ISBN: "9780134190440", Title: "The Go Programming Language", Author: "Alan Donovan", Genre: "Technology", PublicationYear: 2015, TotalCopies: 3, AvailableCopies: 3, CreatedAt: now},
		{ISBN: "9780132350884", Title: "Clean Code", Author: "Robert Martin", Genre: "Technology", PublicationYear: 2008, TotalCopies: 2, AvailableCopies: 2, CreatedAt: now},
		{ISBN: "9780451524935", Title: "1984", Author: "George Orwell", Genre: "Fiction", PublicationYear: 1949, TotalCopies: 4, AvailableCopies: 4, CreatedAt: now},
		{ISBN: "9780061120084", Title: "To Kill a Mockingbird", Author: "Harper Lee", Genre: "Fiction", PublicationYear: 1960, TotalCopies: 2, AvailableCopies: 2, CreatedAt: now},
		{ISBN: "9780553380163", Title: "A Brief History of Time", Author: "Stephen Hawking", Genre: "Science", PublicationYear: 1988, TotalCopies: 1, AvailableCopies: 1, CreatedAt: now},
	}

	for _, book := range samples {
		if err := books.Create(ctx, book); err != nil {
			return fmt.Errorf("failed to create book %s: %w", book.Title, err)
		}
	}

	slog.Info("seed books created", slog.Int("count", len(samples)))
	return nil
}

// seedMembers はサンプル会員を投入する。既に会員がいる場合は何もしない。
func seedMembers(ctx context.Context, members repository.MemberRepository) error {
	existing, err := members.List(ctx, 1, 0)
	if err != nil {
		return fmt.Errorf("failed to check members: %w", err)
	}
	if len(existing) > 0 {
		slog.Info("members already exist, skipping seed")
		return nil
	}

	now := time.Now()
	samples := []*model.Member{
		{Name: "Alice Johnson", Email: "alice@example.com", JoinedAt: now, IsActive: true},
		{Name: "Bob Smith", Email: "bob@example.com", JoinedAt: now, IsActive: true},
		{Name: "Carol Davis", Email: "carol@example.com", JoinedAt: now, IsActive: true},
	}

	for _, member := range samples {
		if err := members.Create(ctx, member); err != nil {
			return fmt.Errorf("failed to create member %s: %w", member.Name, err)
		}
	}

	slog.Info("seed members created", slog.Int("count", len(samples)))
	return nil
}
