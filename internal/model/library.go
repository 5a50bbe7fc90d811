package model

import "time"

// Book は蔵書カタログ上の1タイトルを表す。
// AvailableCopiesは貸出・返却と同一トランザクションで増減する。
type Book struct {
	ID              int64
	ISBN            string
	Title           string
	Author          string
	Genre           string
	PublicationYear int
	TotalCopies     int
	AvailableCopies int
	CreatedAt       time.Time
}

// Member は図書館の利用会員を表す。
type Member struct {
	ID       int64
	Name     string
	Email    string
	JoinedAt time.Time
	IsActive bool
}

// LoanStatus は貸出の状態を表す。
type LoanStatus string

const (
	// LoanStatusActive は貸出中を示す。ReturnDateはnil。
	LoanStatusActive LoanStatus = "active"
	// LoanStatusReturned は返却済みを示す。
	LoanStatusReturned LoanStatus = "returned"
)

// Loan は1冊の貸出記録を表す。
// 貸出中はReturnDateがnilであり、同一タイトルの在庫カウンタと
// 整合するように作成・返却される。
type Loan struct {
	ID         int64
	BookID     int64
	MemberID   int64
	LoanDate   time.Time
	DueDate    time.Time
	ReturnDate *time.Time
	Status     LoanStatus
	FineAmount float64
}

// Overdue は基準時刻nowにおいて貸出が延滞中かどうかを返す。
func (l *Loan) Overdue(now time.Time) bool {
	return l.Status == LoanStatusActive && now.After(l.DueDate)
}
