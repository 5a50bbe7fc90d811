package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/libgate/internal/model"
)

func TestMemberRepo_CreateAndFind(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteMemberRepo(db)

	id := insertTestMember(t, db, "alice")

	got, err := repo.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if got == nil || got.Name != "alice" {
		t.Fatalf("member = %+v, want alice", got)
	}
	if !got.IsActive {
		t.Error("new member should be active")
	}
}

func TestMemberRepo_FindUnknownReturnsNil(t *testing.T) {
	db := openTestDB(t)

	member, err := NewSQLiteMemberRepo(db).FindByID(context.Background(), 9999)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if member != nil {
		t.Errorf("member = %+v, want nil", member)
	}
}

func TestMemberRepo_Update(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteMemberRepo(db)
	id := insertTestMember(t, db, "alice")

	current, err := repo.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	current.Email = "alice@new.example.com"
	current.IsActive = false
	if err := repo.Update(context.Background(), current); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := repo.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if got.Email != "alice@new.example.com" {
		t.Errorf("email = %q, want updated", got.Email)
	}
	if got.IsActive {
		t.Error("member should be inactive")
	}
}

func TestMemberRepo_UpdateUnknownMember(t *testing.T) {
	db := openTestDB(t)

	err := NewSQLiteMemberRepo(db).Update(context.Background(), &model.Member{ID: 9999, Name: "ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemberRepo_ListPagination(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteMemberRepo(db)

	for _, name := range []string{"alice", "bob", "carol"} {
		insertTestMember(t, db, name)
	}

	first, err := repo.List(context.Background(), 2, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(first) != 2 {
		t.Errorf("first page = %d, want 2", len(first))
	}

	rest, err := repo.List(context.Background(), 10, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rest) != 1 {
		t.Errorf("rest = %d, want 1", len(rest))
	}
}
