package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/libgate/internal/database"
	"github.com/hitoshi/libgate/internal/model"
)

// openTestDB はテスト用のインメモリSQLite DBを開き、マイグレーションを適用する。
// cache=sharedで同一DBを複数接続から共有できるようにし、
// 接続数を1に制限してロック競合を避ける。
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	db.SetMaxOpenConns(1)

	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// insertTestBook はテスト用の蔵書を作成してIDを返す。
func insertTestBook(t *testing.T, db *sql.DB, title string, copies int) int64 {
	t.Helper()
	repo := NewSQLiteBookRepo(db)
	book := &model.Book{
		ISBN:            "isbn-" + title,
		Title:           title,
		Author:          "Test Author",
		Genre:           "Fiction",
		PublicationYear: 2020,
		TotalCopies:     copies,
		AvailableCopies: copies,
		CreatedAt:       time.Now(),
	}
	if err := repo.Create(context.Background(), book); err != nil {
		t.Fatalf("failed to insert book: %v", err)
	}
	return book.ID
}

// insertTestMember はテスト用の会員を作成してIDを返す。
func insertTestMember(t *testing.T, db *sql.DB, name string) int64 {
	t.Helper()
	repo := NewSQLiteMemberRepo(db)
	member := &model.Member{
		Name:     name,
		Email:    name + "@example.com",
		JoinedAt: time.Now(),
		IsActive: true,
	}
	if err := repo.Create(context.Background(), member); err != nil {
		t.Fatalf("failed to insert member: %v", err)
	}
	return member.ID
}
