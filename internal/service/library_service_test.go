package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vanshika/shelfwise/internal/domain"
)

type stubRepository struct {
	mu        sync.Mutex
	books     []domain.Book
	readers   []domain.Reader
	borrows   []domain.BorrowEvent
	bookErr   error
	borrowErr error
}

func (s *stubRepository) UpsertBook(_ context.Context, book domain.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bookErr != nil {
		return s.bookErr
	}
	s.books = append(s.books, book)
	return nil
}

func (s *stubRepository) UpsertReader(_ context.Context, reader domain.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readers = append(s.readers, reader)
	return nil
}

func (s *stubRepository) RecordBorrow(_ context.Context, event domain.BorrowEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.borrowErr != nil {
		return s.borrowErr
	}
	s.borrows = append(s.borrows, event)
	return nil
}

var fixedNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func newTestLibraryService(repo *stubRepository) *LibraryService {
	svc := NewLibraryService(repo)
	svc.WithClock(func() time.Time { return fixedNow })
	return svc
}

func TestLibraryService_UpsertBookNormalises(t *testing.T) {
	repo := &stubRepository{}
	svc := newTestLibraryService(repo)

	err := svc.UpsertBook(context.Background(), BookInput{
		ID:     " BK-1 ",
		Title:  "  The   Dispossessed ",
		Author: "Ursula  K. Le Guin",
		ISBN:   "978-0-06-051275-0",
		Genre:  " Science  Fiction",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(repo.books) != 1 {
		t.Fatalf("expected 1 book, got %d", len(repo.books))
	}
	book := repo.books[0]
	if book.ID != "BK-1" || book.Title != "The Dispossessed" || book.Author != "Ursula K. Le Guin" {
		t.Errorf("unexpected book %+v", book)
	}
	if book.ISBN != "9780060512750" {
		t.Errorf("unexpected isbn %q", book.ISBN)
	}
	if book.Genre != "science fiction" {
		t.Errorf("unexpected genre %q", book.Genre)
	}
	if !book.CreatedAt.Equal(fixedNow) || !book.UpdatedAt.Equal(fixedNow) {
		t.Errorf("expected timestamps from clock, got %v / %v", book.CreatedAt, book.UpdatedAt)
	}
}

func TestLibraryService_UpsertBookValidation(t *testing.T) {
	svc := newTestLibraryService(&stubRepository{})
	cases := []BookInput{
		{Title: "No ID"},
		{ID: "BK-1"},
		{ID: "BK-1", Title: "Negative", PublishedYear: -1},
		{ID: "   ", Title: "Blank ID"},
		{ID: "BK-1", Title: "Bad checksum", ISBN: "978-0-06-051275-1"},
	}
	for _, in := range cases {
		if err := svc.UpsertBook(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("input %+v: expected ErrInvalidInput, got %v", in, err)
		}
	}
}

func TestLibraryService_UpsertReader(t *testing.T) {
	repo := &stubRepository{}
	svc := newTestLibraryService(repo)
	created := fixedNow.Add(-time.Hour)

	if err := svc.UpsertReader(context.Background(), ReaderInput{ID: "RD-1", FullName: " Ada  Lovelace ", Email: " Ada@Example.COM ", CreatedAt: &created}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	reader := repo.readers[0]
	if reader.FullName != "Ada Lovelace" || reader.Email != "ada@example.com" {
		t.Errorf("unexpected reader %+v", reader)
	}
	if !reader.CreatedAt.Equal(created) {
		t.Errorf("expected createdAt %v, got %v", created, reader.CreatedAt)
	}
	if err := svc.UpsertReader(context.Background(), ReaderInput{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	err := svc.UpsertReader(context.Background(), ReaderInput{ID: "RD-2", Email: "not-an-address"})
	if !errors.Is(err, ErrInvalidInput) || !strings.Contains(err.Error(), "ReaderInput.Email") {
		t.Errorf("expected email validation error, got %v", err)
	}
	if len(repo.readers) != 1 {
		t.Errorf("expected rejected readers not to be stored, got %d", len(repo.readers))
	}
}

func TestLibraryService_RecordBorrow(t *testing.T) {
	repo := &stubRepository{}
	svc := newTestLibraryService(repo)

	borrowed := fixedNow.Add(-72 * time.Hour).In(time.FixedZone("CET", 3600))
	returned := fixedNow.Add(-24 * time.Hour)
	if err := svc.RecordBorrow(context.Background(), BorrowInput{ReaderID: "RD-1", BookID: "BK-1", BorrowedAt: borrowed, ReturnedAt: &returned}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	ev := repo.borrows[0]
	if ev.UserID != "RD-1" || ev.BookID != "BK-1" {
		t.Errorf("unexpected event %+v", ev)
	}
	if ev.BorrowedAt.Location() != time.UTC || !ev.BorrowedAt.Equal(borrowed) {
		t.Errorf("expected UTC borrowedAt, got %v", ev.BorrowedAt)
	}
	if ev.ReturnedAt == nil || !ev.ReturnedAt.Equal(returned) {
		t.Errorf("unexpected returnedAt %v", ev.ReturnedAt)
	}
}

func TestLibraryService_RecordBorrowValidation(t *testing.T) {
	svc := newTestLibraryService(&stubRepository{})
	early := fixedNow.Add(-48 * time.Hour)
	cases := map[string]BorrowInput{
		"missing reader": {BookID: "BK-1", BorrowedAt: early},
		"blank book":     {ReaderID: "RD-1", BookID: " ", BorrowedAt: early},
		"missing time":   {ReaderID: "RD-1", BookID: "BK-1"},
		"future":         {ReaderID: "RD-1", BookID: "BK-1", BorrowedAt: fixedNow.Add(time.Hour)},
		"return first":   {ReaderID: "RD-1", BookID: "BK-1", BorrowedAt: fixedNow.Add(-time.Hour), ReturnedAt: &early},
	}
	for name, in := range cases {
		if err := svc.RecordBorrow(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", name, err)
		}
	}
}

func TestBulkIngestor_AggregatesFailures(t *testing.T) {
	repo := &stubRepository{}
	ingestor := NewBulkIngestor(newTestLibraryService(repo), 3)

	books := []BookInput{
		{ID: "BK-1", Title: "One"},
		{ID: "BK-2"},
		{ID: "BK-3", Title: "Three"},
		{Title: "Four"},
	}
	err := ingestor.IngestBooks(context.Background(), books)
	var taskErr *TaskError
	if !errors.As(err, &taskErr) {
		t.Fatalf("expected TaskError, got %v", err)
	}
	if len(taskErr.Errors) != 2 {
		t.Errorf("expected 2 failures, got %d", len(taskErr.Errors))
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected TaskError to unwrap to ErrInvalidInput")
	}
	if len(repo.books) != 2 {
		t.Errorf("expected 2 stored books, got %d", len(repo.books))
	}
}

func TestBulkIngestor_Borrows(t *testing.T) {
	repo := &stubRepository{}
	ingestor := NewBulkIngestor(newTestLibraryService(repo), 0)

	borrows := make([]BorrowInput, 20)
	for i := range borrows {
		borrows[i] = BorrowInput{ReaderID: "RD-1", BookID: "BK-1", BorrowedAt: fixedNow.Add(-time.Duration(i+1) * time.Hour)}
	}
	if err := ingestor.IngestBorrows(context.Background(), borrows); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(repo.borrows) != 20 {
		t.Errorf("expected 20 borrows, got %d", len(repo.borrows))
	}
	if err := ingestor.IngestReaders(context.Background(), nil); err != nil {
		t.Errorf("empty input should be a no-op, got %v", err)
	}
}

func TestBulkIngestor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ingestor := NewBulkIngestor(newTestLibraryService(&stubRepository{}), 2)
	err := ingestor.IngestReaders(ctx, []ReaderInput{{ID: "RD-1"}, {ID: "RD-2"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
