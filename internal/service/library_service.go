package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vanshika/shelfwise/internal/domain"
	"github.com/vanshika/shelfwise/internal/validation"
)

// ErrInvalidInput marks a payload rejected before reaching the store.
var ErrInvalidInput = errors.New("invalid input")

// LibraryRepository is the write contract shared by the graph repository and the SQL store.
type LibraryRepository interface {
	UpsertBook(ctx context.Context, book domain.Book) error
	UpsertReader(ctx context.Context, reader domain.Reader) error
	RecordBorrow(ctx context.Context, event domain.BorrowEvent) error
}

// LibraryService normalises catalogue and circulation payloads and persists them.
type LibraryService struct {
	repo  LibraryRepository
	nowFn func() time.Time
}

func NewLibraryService(repo LibraryRepository) *LibraryService {
	return &LibraryService{repo: repo, nowFn: time.Now}
}

// WithClock overrides the time provider (used primarily in tests).
func (s *LibraryService) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// UpsertBook validates and stores a catalogue entry.
func (s *LibraryService) UpsertBook(ctx context.Context, input BookInput) error {
	input.ID = sanitizeString(input.ID)
	input.Title = sanitizeString(input.Title)
	input.ISBN = normalizeISBN(input.ISBN)
	if err := validateInput(input); err != nil {
		return err
	}

	createdAt, updatedAt := s.stamps(input.CreatedAt, input.UpdatedAt)
	return s.repo.UpsertBook(ctx, domain.Book{
		ID:            input.ID,
		Title:         input.Title,
		Author:        sanitizeString(input.Author),
		ISBN:          input.ISBN,
		Genre:         normalizeGenre(input.Genre),
		PublishedYear: input.PublishedYear,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	})
}

// UpsertReader validates and stores a library member.
func (s *LibraryService) UpsertReader(ctx context.Context, input ReaderInput) error {
	input.ID = sanitizeString(input.ID)
	input.Email = normalizeEmail(input.Email)
	if err := validateInput(input); err != nil {
		return err
	}

	createdAt, updatedAt := s.stamps(input.CreatedAt, input.UpdatedAt)
	return s.repo.UpsertReader(ctx, domain.Reader{
		ID:        input.ID,
		FullName:  sanitizeString(input.FullName),
		Email:     input.Email,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	})
}

// RecordBorrow validates and stores a checkout. Borrows dated in the future
// are rejected; a return before the borrow is rejected too.
func (s *LibraryService) RecordBorrow(ctx context.Context, input BorrowInput) error {
	input.ReaderID = sanitizeString(input.ReaderID)
	input.BookID = sanitizeString(input.BookID)
	if err := validateInput(input); err != nil {
		return err
	}

	now := s.nowFn().UTC()
	borrowedAt := input.BorrowedAt.UTC()
	if borrowedAt.After(now) {
		return fmt.Errorf("%w: borrowedAt %s is in the future", ErrInvalidInput, borrowedAt.Format(time.RFC3339))
	}
	var returnedAt *time.Time
	if input.ReturnedAt != nil && !input.ReturnedAt.IsZero() {
		r := input.ReturnedAt.UTC()
		if r.Before(borrowedAt) {
			return fmt.Errorf("%w: returnedAt precedes borrowedAt", ErrInvalidInput)
		}
		returnedAt = &r
	}

	return s.repo.RecordBorrow(ctx, domain.BorrowEvent{
		ID:         sanitizeString(input.ID),
		UserID:     input.ReaderID,
		BookID:     input.BookID,
		BorrowedAt: borrowedAt,
		ReturnedAt: returnedAt,
	})
}

func validateInput(v any) error {
	if err := validation.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func (s *LibraryService) stamps(created, updated *time.Time) (time.Time, time.Time) {
	now := s.nowFn().UTC()
	createdAt, updatedAt := now, now
	if created != nil {
		createdAt = created.UTC()
	}
	if updated != nil {
		updatedAt = updated.UTC()
	}
	return createdAt, updatedAt
}
