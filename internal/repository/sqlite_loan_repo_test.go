package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/libgate/internal/model"
)

func newTestLoan(bookID, memberID int64) *model.Loan {
	now := time.Now()
	return &model.Loan{
		BookID:   bookID,
		MemberID: memberID,
		LoanDate: now,
		DueDate:  now.Add(21 * 24 * time.Hour),
	}
}

func TestLoanRepo_CreateDecrementsAvailableCopies(t *testing.T) {
	db := openTestDB(t)
	bookID := insertTestBook(t, db, "The Go Programming Language", 2)
	memberID := insertTestMember(t, db, "alice")

	loanRepo := NewSQLiteLoanRepo(db)
	bookRepo := NewSQLiteBookRepo(db)

	loan := newTestLoan(bookID, memberID)
	if err := loanRepo.Create(context.Background(), loan); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if loan.ID == 0 {
		t.Error("loan ID should be assigned")
	}
	if loan.Status != model.LoanStatusActive {
		t.Errorf("status = %q, want %q", loan.Status, model.LoanStatusActive)
	}

	book, err := bookRepo.FindByID(context.Background(), bookID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if book.AvailableCopies != 1 {
		t.Errorf("available copies = %d, want 1", book.AvailableCopies)
	}
}

func TestLoanRepo_CreateFailsWhenNoCopies(t *testing.T) {
	db := openTestDB(t)
	bookID := insertTestBook(t, db, "Rare Book", 1)
	alice := insertTestMember(t, db, "alice")
	bob := insertTestMember(t, db, "bob")

	repo := NewSQLiteLoanRepo(db)

	if err := repo.Create(context.Background(), newTestLoan(bookID, alice)); err != nil {
		t.Fatalf("first loan failed: %v", err)
	}

	err := repo.Create(context.Background(), newTestLoan(bookID, bob))
	if !errors.Is(err, ErrCopyUnavailable) {
		t.Fatalf("err = %v, want ErrCopyUnavailable", err)
	}
}

func TestLoanRepo_CreateUnknownBookOrMember(t *testing.T) {
	db := openTestDB(t)
	bookID := insertTestBook(t, db, "Known Book", 1)
	memberID := insertTestMember(t, db, "alice")

	repo := NewSQLiteLoanRepo(db)

	if err := repo.Create(context.Background(), newTestLoan(9999, memberID)); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown book: err = %v, want ErrNotFound", err)
	}
	if err := repo.Create(context.Background(), newTestLoan(bookID, 9999)); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown member: err = %v, want ErrNotFound", err)
	}
}

func TestLoanRepo_CreateRejectsDuplicateActiveLoan(t *testing.T) {
	db := openTestDB(t)
	bookID := insertTestBook(t, db, "Popular Book", 3)
	memberID := insertTestMember(t, db, "alice")

	repo := NewSQLiteLoanRepo(db)

	if err := repo.Create(context.Background(), newTestLoan(bookID, memberID)); err != nil {
		t.Fatalf("first loan failed: %v", err)
	}

	err := repo.Create(context.Background(), newTestLoan(bookID, memberID))
	if !errors.Is(err, ErrDuplicateLoan) {
		t.Fatalf("err = %v, want ErrDuplicateLoan", err)
	}
}

// 在庫1冊への並行貸出はちょうど1件だけが成功することを確認する
func TestLoanRepo_ConcurrentLoansOnLastCopy(t *testing.T) {
	db := openTestDB(t)
	bookID := insertTestBook(t, db, "Last Copy", 1)

	const workers = 5
	memberIDs := make([]int64, workers)
	for i := range memberIDs {
		memberIDs[i] = insertTestMember(t, db, string(rune('a'+i))+"-member")
	}

	repo := NewSQLiteLoanRepo(db)

	var wg sync.WaitGroup
	results := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = repo.Create(context.Background(), newTestLoan(bookID, memberIDs[i]))
		}(i)
	}
	wg.Wait()

	var successes, unavailable int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrCopyUnavailable):
			unavailable++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if successes != 1 {
		t.Errorf("successes = %d, want exactly 1", successes)
	}
	if unavailable != workers-1 {
		t.Errorf("unavailable = %d, want %d", unavailable, workers-1)
	}

	// 在庫カウンタは0で止まり、負にならない
	book, err := NewSQLiteBookRepo(db).FindByID(context.Background(), bookID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if book.AvailableCopies != 0 {
		t.Errorf("available copies = %d, want 0", book.AvailableCopies)
	}
}

func TestLoanRepo_ReturnIncrementsAvailableCopies(t *testing.T) {
	db := openTestDB(t)
	bookID := insertTestBook(t, db, "Returnable", 1)
	memberID := insertTestMember(t, db, "alice")

	loanRepo := NewSQLiteLoanRepo(db)
	bookRepo := NewSQLiteBookRepo(db)

	loan := newTestLoan(bookID, memberID)
	if err := loanRepo.Create(context.Background(), loan); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	returnedAt := time.Now()
	if err := loanRepo.Return(context.Background(), loan.ID, returnedAt, 1.5); err != nil {
		t.Fatalf("Return failed: %v", err)
	}

	got, err := loanRepo.FindByID(context.Background(), loan.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if got.Status != model.LoanStatusReturned {
		t.Errorf("status = %q, want %q", got.Status, model.LoanStatusReturned)
	}
	if got.ReturnDate == nil {
		t.Error("return date should be set")
	}
	if got.FineAmount != 1.5 {
		t.Errorf("fine = %v, want 1.5", got.FineAmount)
	}

	book, err := bookRepo.FindByID(context.Background(), bookID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if book.AvailableCopies != 1 {
		t.Errorf("available copies = %d, want 1", book.AvailableCopies)
	}
}

// 2回目の返却はALREADY_RETURNEDになり、在庫を二重にインクリメントしないことを確認する
func TestLoanRepo_DoubleReturn(t *testing.T) {
	db := openTestDB(t)
	bookID := insertTestBook(t, db, "Once Only", 1)
	memberID := insertTestMember(t, db, "alice")

	loanRepo := NewSQLiteLoanRepo(db)
	bookRepo := NewSQLiteBookRepo(db)

	loan := newTestLoan(bookID, memberID)
	if err := loanRepo.Create(context.Background(), loan); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := loanRepo.Return(context.Background(), loan.ID, time.Now(), 0); err != nil {
		t.Fatalf("first Return failed: %v", err)
	}

	err := loanRepo.Return(context.Background(), loan.ID, time.Now(), 0)
	if !errors.Is(err, ErrAlreadyReturned) {
		t.Fatalf("err = %v, want ErrAlreadyReturned", err)
	}

	book, err := bookRepo.FindByID(context.Background(), bookID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if book.AvailableCopies != 1 {
		t.Errorf("available copies = %d, want 1 (no double increment)", book.AvailableCopies)
	}
}

func TestLoanRepo_ReturnUnknownLoan(t *testing.T) {
	db := openTestDB(t)

	err := NewSQLiteLoanRepo(db).Return(context.Background(), 9999, time.Now(), 0)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLoanRepo_ListFilters(t *testing.T) {
	db := openTestDB(t)
	bookID := insertTestBook(t, db, "Filter Book", 3)
	alice := insertTestMember(t, db, "alice")
	bob := insertTestMember(t, db, "bob")
	carol := insertTestMember(t, db, "carol")

	repo := NewSQLiteLoanRepo(db)
	now := time.Now()

	// 貸出中（期限内）
	active := &model.Loan{BookID: bookID, MemberID: alice, LoanDate: now, DueDate: now.Add(24 * time.Hour)}
	if err := repo.Create(context.Background(), active); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// 貸出中（延滞）
	overdue := &model.Loan{BookID: bookID, MemberID: bob, LoanDate: now.Add(-30 * 24 * time.Hour), DueDate: now.Add(-9 * 24 * time.Hour)}
	if err := repo.Create(context.Background(), overdue); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// 返却済み
	returned := &model.Loan{BookID: bookID, MemberID: carol, LoanDate: now, DueDate: now.Add(24 * time.Hour)}
	if err := repo.Create(context.Background(), returned); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.Return(context.Background(), returned.ID, now, 0); err != nil {
		t.Fatalf("Return failed: %v", err)
	}

	all, err := repo.List(context.Background(), LoanFilterAll, now, 50, 0)
	if err != nil {
		t.Fatalf("List all failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all = %d, want 3", len(all))
	}

	actives, err := repo.List(context.Background(), LoanFilterActive, now, 50, 0)
	if err != nil {
		t.Fatalf("List active failed: %v", err)
	}
	if len(actives) != 2 {
		t.Errorf("active = %d, want 2", len(actives))
	}

	overdues, err := repo.List(context.Background(), LoanFilterOverdue, now, 50, 0)
	if err != nil {
		t.Fatalf("List overdue failed: %v", err)
	}
	if len(overdues) != 1 {
		t.Fatalf("overdue = %d, want 1", len(overdues))
	}
	if overdues[0].ID != overdue.ID {
		t.Errorf("overdue loan ID = %d, want %d", overdues[0].ID, overdue.ID)
	}
}
