package recommend

import (
	"context"
	"sync"
	"time"

	"github.com/vanshika/shelfwise/internal/domain"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(d int) time.Time {
	return testNow.Add(-time.Duration(d) * 24 * time.Hour)
}

type stubStore struct {
	mu          sync.Mutex
	borrows     []domain.BorrowEvent
	books       map[string]domain.BookMetadata
	historyErr  error
	coErr       error
	metaErr     error
	historyHits map[string]int
	metaHits    map[string]int
}

func newStubStore(events ...domain.BorrowEvent) *stubStore {
	return &stubStore{
		borrows:     events,
		books:       make(map[string]domain.BookMetadata),
		historyHits: make(map[string]int),
		metaHits:    make(map[string]int),
	}
}

func (s *stubStore) withBooks(ids ...string) *stubStore {
	for _, id := range ids {
		s.books[id] = domain.BookMetadata{BookID: id, Title: "Title " + id}
	}
	return s
}

func borrow(userID, bookID string, days int) domain.BorrowEvent {
	return domain.BorrowEvent{UserID: userID, BookID: bookID, BorrowedAt: daysAgo(days)}
}

func (s *stubStore) FindBorrowHistory(_ context.Context, userID string) ([]domain.BorrowRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyHits[userID]++
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	var out []domain.BorrowRecord
	for _, e := range s.borrows {
		if e.UserID == userID {
			out = append(out, domain.BorrowRecord{BookID: e.BookID, BorrowedAt: e.BorrowedAt})
		}
	}
	return out, nil
}

func (s *stubStore) FindCoBorrowers(_ context.Context, bookID string) ([]domain.CoBorrower, error) {
	if s.coErr != nil {
		return nil, s.coErr
	}
	var out []domain.CoBorrower
	for _, e := range s.borrows {
		if e.BookID == bookID {
			out = append(out, domain.CoBorrower{UserID: e.UserID, BorrowedAt: e.BorrowedAt})
		}
	}
	return out, nil
}

func (s *stubStore) FindBookMetadata(_ context.Context, bookID string) (domain.BookMetadata, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metaHits[bookID]++
	if s.metaErr != nil {
		return domain.BookMetadata{}, false, s.metaErr
	}
	meta, ok := s.books[bookID]
	return meta, ok, nil
}

// workedExample is U1 borrowing B1 ten days ago, and U2 borrowing B1 five days
// ago and B2 three days ago.
func workedExample() *stubStore {
	return newStubStore(
		borrow("U1", "B1", 10),
		borrow("U2", "B1", 5),
		borrow("U2", "B2", 3),
	).withBooks("B1", "B2")
}

func newTestBuilder(store HistoryReader, cfg BuilderConfig) *Builder {
	b := NewBuilder(store, cfg, nil)
	b.WithClock(func() time.Time { return testNow })
	return b
}
