package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/vanshika/shelfwise/internal/domain"
	"github.com/vanshika/shelfwise/internal/metrics"
)

// LibraryReader is the read side shared by the graph repository and the SQL store.
type LibraryReader interface {
	FindBorrowHistory(ctx context.Context, userID string) ([]domain.BorrowRecord, error)
	FindCoBorrowers(ctx context.Context, bookID string) ([]domain.CoBorrower, error)
	FindBookMetadata(ctx context.Context, bookID string) (domain.BookMetadata, bool, error)
}

// BreakerSettings tunes the circuit breaker guarding store reads.
type BreakerSettings struct {
	Name string
	// MinRequests is the number of reads in the window before the failure
	// ratio is considered.
	MinRequests  uint32
	FailureRatio float64
	// HalfOpenRequests is how many probe reads are let through once Timeout
	// has elapsed in the open state.
	HalfOpenRequests uint32
	Interval         time.Duration
	Timeout          time.Duration
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:             "library-store",
		MinRequests:      10,
		FailureRatio:     0.6,
		HalfOpenRequests: 3,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
	}
}

// ResilientReader fails fast once the wrapped store keeps erroring, instead of
// letting every recommendation wait for its own timeout.
type ResilientReader struct {
	next    LibraryReader
	name    string
	history *gobreaker.CircuitBreaker[[]domain.BorrowRecord]
	co      *gobreaker.CircuitBreaker[[]domain.CoBorrower]
	meta    *gobreaker.CircuitBreaker[metadataResult]
}

type metadataResult struct {
	meta domain.BookMetadata
	ok   bool
}

// NewResilientReader wraps next. The three read operations trip independently.
func NewResilientReader(next LibraryReader, settings BreakerSettings, logger *slog.Logger) *ResilientReader {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultBreakerSettings()
	if settings.Name == "" {
		settings.Name = defaults.Name
	}
	if settings.MinRequests == 0 {
		settings.MinRequests = defaults.MinRequests
	}
	if settings.FailureRatio <= 0 || settings.FailureRatio > 1 {
		settings.FailureRatio = defaults.FailureRatio
	}
	if settings.HalfOpenRequests == 0 {
		settings.HalfOpenRequests = defaults.HalfOpenRequests
	}
	if settings.Timeout <= 0 {
		settings.Timeout = defaults.Timeout
	}

	return &ResilientReader{
		next:    next,
		name:    settings.Name,
		history: gobreaker.NewCircuitBreaker[[]domain.BorrowRecord](breakerSettings(settings, "history", logger)),
		co:      gobreaker.NewCircuitBreaker[[]domain.CoBorrower](breakerSettings(settings, "co-borrowers", logger)),
		meta:    gobreaker.NewCircuitBreaker[metadataResult](breakerSettings(settings, "metadata", logger)),
	}
}

func breakerSettings(s BreakerSettings, operation string, logger *slog.Logger) gobreaker.Settings {
	name := s.Name + "/" + operation
	metrics.BreakerState.WithLabelValues(name).Set(0)
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: s.HalfOpenRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("store breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.BreakerState.WithLabelValues(name).Set(stateValue(to))
		},
		// A cancelled request says nothing about store health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func (r *ResilientReader) FindBorrowHistory(ctx context.Context, userID string) ([]domain.BorrowRecord, error) {
	return guard(r.history, "history", func() ([]domain.BorrowRecord, error) {
		return r.next.FindBorrowHistory(ctx, userID)
	})
}

func (r *ResilientReader) FindCoBorrowers(ctx context.Context, bookID string) ([]domain.CoBorrower, error) {
	return guard(r.co, "co-borrowers", func() ([]domain.CoBorrower, error) {
		return r.next.FindCoBorrowers(ctx, bookID)
	})
}

func (r *ResilientReader) FindBookMetadata(ctx context.Context, bookID string) (domain.BookMetadata, bool, error) {
	res, err := guard(r.meta, "metadata", func() (metadataResult, error) {
		meta, ok, err := r.next.FindBookMetadata(ctx, bookID)
		return metadataResult{meta: meta, ok: ok}, err
	})
	return res.meta, res.ok, err
}

// State reports the breaker state of each operation.
func (r *ResilientReader) State() map[string]string {
	return map[string]string{
		"history":      r.history.State().String(),
		"co-borrowers": r.co.State().String(),
		"metadata":     r.meta.State().String(),
	}
}

func guard[T any](cb *gobreaker.CircuitBreaker[T], operation string, fn func() (T, error)) (T, error) {
	res, err := cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.ObserveStoreRejection(operation)
		return res, err
	}
	metrics.ObserveStoreRead(operation, err)
	return res, err
}
