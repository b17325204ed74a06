package recommend

import (
	"context"

	"github.com/vanshika/shelfwise/internal/domain"
)

// HistoryReader is the borrowing-history contract the subgraph builder depends on.
type HistoryReader interface {
	FindBorrowHistory(ctx context.Context, userID string) ([]domain.BorrowRecord, error)
	FindCoBorrowers(ctx context.Context, bookID string) ([]domain.CoBorrower, error)
}

// MetadataReader resolves book titles for explanations. A missing book is
// reported with ok == false and a nil error.
type MetadataReader interface {
	FindBookMetadata(ctx context.Context, bookID string) (meta domain.BookMetadata, ok bool, err error)
}
