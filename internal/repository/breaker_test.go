package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/shelfwise/internal/domain"
)

type flakyReader struct {
	err   error
	calls int
}

func (f *flakyReader) FindBorrowHistory(context.Context, string) ([]domain.BorrowRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []domain.BorrowRecord{{BookID: "BK-1", BorrowedAt: time.Unix(0, 0)}}, nil
}

func (f *flakyReader) FindCoBorrowers(context.Context, string) ([]domain.CoBorrower, error) {
	f.calls++
	return nil, f.err
}

func (f *flakyReader) FindBookMetadata(_ context.Context, bookID string) (domain.BookMetadata, bool, error) {
	f.calls++
	if f.err != nil {
		return domain.BookMetadata{}, false, f.err
	}
	return domain.BookMetadata{BookID: bookID, Title: "T"}, true, nil
}

func TestResilientReaderPassesThrough(t *testing.T) {
	inner := &flakyReader{}
	r := NewResilientReader(inner, BreakerSettings{Name: "pass"}, nil)

	history, err := r.FindBorrowHistory(context.Background(), "RD-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	meta, ok, err := r.FindBookMetadata(context.Background(), "BK-2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "BK-2", meta.BookID)
}

func TestResilientReaderOpensAfterFailures(t *testing.T) {
	boom := errors.New("neo4j unavailable")
	inner := &flakyReader{err: boom}
	r := NewResilientReader(inner, BreakerSettings{
		Name:         "trip",
		MinRequests:  3,
		FailureRatio: 0.5,
		Timeout:      time.Hour,
	}, nil)

	for i := 0; i < 3; i++ {
		_, err := r.FindBorrowHistory(context.Background(), "RD-1")
		require.ErrorIs(t, err, boom)
	}
	assert.Equal(t, gobreaker.StateOpen.String(), r.State()["history"])

	_, err := r.FindBorrowHistory(context.Background(), "RD-1")
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, inner.calls)

	// Other operations have their own breaker.
	assert.Equal(t, gobreaker.StateClosed.String(), r.State()["metadata"])
}

func TestResilientReaderIgnoresCancellation(t *testing.T) {
	inner := &flakyReader{err: context.Canceled}
	r := NewResilientReader(inner, BreakerSettings{Name: "cancel", MinRequests: 1, FailureRatio: 0.1}, nil)
	for i := 0; i < 5; i++ {
		_, err := r.FindCoBorrowers(context.Background(), "BK-1")
		require.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed.String(), r.State()["co-borrowers"])
}
