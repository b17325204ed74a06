package service

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// TaskError accumulates the failures of a pooled run.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return "multiple errors: " + strings.Join(msgs, "; ")
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *TaskError) Unwrap() []error {
	return e.Errors
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// BulkIngestor loads datasets through a LibraryService using a worker pool.
type BulkIngestor struct {
	service *LibraryService
	workers int
}

// NewBulkIngestor creates a new BulkIngestor instance with the provided concurrency.
func NewBulkIngestor(service *LibraryService, workers int) *BulkIngestor {
	if workers <= 0 {
		workers = 4
	}
	return &BulkIngestor{
		service: service,
		workers: workers,
	}
}

func (bi *BulkIngestor) IngestBooks(ctx context.Context, books []BookInput) error {
	return runPool(ctx, bi.workers, len(books), func(idx int) error {
		return bi.service.UpsertBook(ctx, books[idx])
	})
}

func (bi *BulkIngestor) IngestReaders(ctx context.Context, readers []ReaderInput) error {
	return runPool(ctx, bi.workers, len(readers), func(idx int) error {
		return bi.service.UpsertReader(ctx, readers[idx])
	})
}

// IngestBorrows should run after books and readers are loaded, since a borrow
// needs both endpoints.
func (bi *BulkIngestor) IngestBorrows(ctx context.Context, borrows []BorrowInput) error {
	return runPool(ctx, bi.workers, len(borrows), func(idx int) error {
		return bi.service.RecordBorrow(ctx, borrows[idx])
	})
}

// runPool calls workerFn for every index in [0, total) on at most workers
// goroutines. Cancellation that cuts dispatch short is returned as is; other
// failures are collected into a *TaskError.
func runPool(ctx context.Context, workers, total int, workerFn func(idx int) error) error {
	if total == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if workers > total {
		workers = total
	}
	indexCh := make(chan int)
	errCh := make(chan error, total)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			if err := workerFn(idx); err != nil {
				errCh <- err
			}
		}
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go worker()
	}

	dispatched := 0
Loop:
	for dispatched < total && ctx.Err() == nil {
		select {
		case indexCh <- dispatched:
			dispatched++
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	if dispatched < total {
		return ctx.Err()
	}
	var taskErr TaskError
	for err := range errCh {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		taskErr.append(err)
	}
	return taskErr.asError()
}
