package domain

import (
	"time"

	"github.com/google/uuid"
)

// borrowNamespace scopes the name-based UUIDs derived for borrow events.
var borrowNamespace = uuid.MustParse("6f1c9a52-3b7e-4f0a-9d0e-8a2f5c4b7e61")

// BorrowEvent is a single checkout of a book by a reader.
type BorrowEvent struct {
	ID         string
	UserID     string
	BookID     string
	BorrowedAt time.Time
	ReturnedAt *time.Time
}

// DeriveID returns a stable identifier for the event, so re-ingesting the same
// checkout never creates a second record.
func (e BorrowEvent) DeriveID() string {
	name := e.UserID + "|" + e.BookID + "|" + e.BorrowedAt.UTC().Format(time.RFC3339Nano)
	return uuid.NewSHA1(borrowNamespace, []byte(name)).String()
}

// BorrowRecord is one entry of a reader's borrowing history.
type BorrowRecord struct {
	BookID     string
	BorrowedAt time.Time
}

// CoBorrower is a reader who borrowed a given book, with the time of that borrow.
type CoBorrower struct {
	UserID     string
	BorrowedAt time.Time
}
