package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vanshika/shelfwise/internal/domain"
	"github.com/vanshika/shelfwise/internal/graph"
)

// Repository stores the library catalogue and borrow events as a property
// graph: (:Reader)-[:BORROWED]->(:Book).
type Repository struct {
	client graph.Client
}

// New instantiates a Repository backed by the supplied graph client.
func New(client graph.Client) *Repository {
	return &Repository{client: client}
}

// UpsertBook creates or refreshes a book node.
func (r *Repository) UpsertBook(ctx context.Context, book domain.Book) error {
	if book.ID == "" {
		return errors.New("book id is required")
	}

	params := map[string]any{
		"bookId": book.ID,
		"props":  bookProperties(book),
	}
	if _, err := r.client.ExecuteWrite(ctx, upsertBookCypher, params); err != nil {
		return fmt.Errorf("upsert book %s: %w", book.ID, err)
	}
	return nil
}

// UpsertReader creates or refreshes a reader node.
func (r *Repository) UpsertReader(ctx context.Context, reader domain.Reader) error {
	if reader.ID == "" {
		return errors.New("reader id is required")
	}

	params := map[string]any{
		"readerId": reader.ID,
		"props":    readerProperties(reader),
	}
	if _, err := r.client.ExecuteWrite(ctx, upsertReaderCypher, params); err != nil {
		return fmt.Errorf("upsert reader %s: %w", reader.ID, err)
	}
	return nil
}

// RecordBorrow links a reader to a book. Both endpoints must already exist.
// Recording the same event twice updates it in place.
func (r *Repository) RecordBorrow(ctx context.Context, event domain.BorrowEvent) error {
	if event.UserID == "" || event.BookID == "" {
		return errors.New("both reader and book IDs are required")
	}
	if event.BorrowedAt.IsZero() {
		return errors.New("borrowedAt is required")
	}
	id := event.ID
	if id == "" {
		id = event.DeriveID()
	}

	params := map[string]any{
		"borrowId":   id,
		"readerId":   event.UserID,
		"bookId":     event.BookID,
		"borrowedAt": formatTime(event.BorrowedAt),
		"returnedAt": formatTimePtr(event.ReturnedAt),
	}
	res, err := r.client.ExecuteWrite(ctx, recordBorrowCypher, params)
	if err != nil {
		return fmt.Errorf("record borrow %s: %w", id, err)
	}
	if len(res.Records) == 0 {
		return fmt.Errorf("record borrow %s: %w", id, ErrUnknownEndpoint)
	}
	return nil
}

// ErrUnknownEndpoint is returned when a borrow references a reader or book that
// has not been stored.
var ErrUnknownEndpoint = errors.New("reader or book not found")

// FindBorrowHistory returns every borrow of userID, oldest first.
func (r *Repository) FindBorrowHistory(ctx context.Context, userID string) ([]domain.BorrowRecord, error) {
	res, err := r.client.ExecuteRead(ctx, borrowHistoryCypher, map[string]any{"readerId": userID})
	if err != nil {
		return nil, fmt.Errorf("borrow history query: %w", err)
	}
	history := make([]domain.BorrowRecord, 0, len(res.Records))
	for _, record := range res.Records {
		at := toTimePtr(record["borrowedAt"])
		if at == nil {
			continue
		}
		history = append(history, domain.BorrowRecord{
			BookID:     toString(record["bookId"]),
			BorrowedAt: *at,
		})
	}
	return history, nil
}

// FindCoBorrowers returns one row per borrow of bookID, including the asking
// reader's own; callers filter themselves out.
func (r *Repository) FindCoBorrowers(ctx context.Context, bookID string) ([]domain.CoBorrower, error) {
	res, err := r.client.ExecuteRead(ctx, coBorrowersCypher, map[string]any{"bookId": bookID})
	if err != nil {
		return nil, fmt.Errorf("co-borrowers query: %w", err)
	}
	rows := make([]domain.CoBorrower, 0, len(res.Records))
	for _, record := range res.Records {
		at := toTimePtr(record["borrowedAt"])
		if at == nil {
			continue
		}
		rows = append(rows, domain.CoBorrower{
			UserID:     toString(record["readerId"]),
			BorrowedAt: *at,
		})
	}
	return rows, nil
}

// FindBookMetadata looks up the descriptive fields of a book.
func (r *Repository) FindBookMetadata(ctx context.Context, bookID string) (domain.BookMetadata, bool, error) {
	res, err := r.client.ExecuteRead(ctx, bookMetadataCypher, map[string]any{"bookId": bookID})
	if err != nil {
		return domain.BookMetadata{}, false, fmt.Errorf("book metadata query: %w", err)
	}
	if len(res.Records) == 0 {
		return domain.BookMetadata{}, false, nil
	}
	record := res.Records[0]
	return domain.BookMetadata{
		BookID: toString(record["bookId"]),
		Title:  toString(record["title"]),
		Author: toString(record["author"]),
		Genre:  toString(record["genre"]),
	}, true, nil
}

// Ping checks the graph is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.VerifyConnectivity(ctx)
}

func bookProperties(b domain.Book) map[string]any {
	props := map[string]any{
		"title":         b.Title,
		"author":        b.Author,
		"isbn":          b.ISBN,
		"genre":         b.Genre,
		"publishedYear": b.PublishedYear,
		"updatedAt":     formatTime(b.UpdatedAt),
	}
	if !b.CreatedAt.IsZero() {
		props["createdAt"] = formatTime(b.CreatedAt)
	}
	return props
}

func readerProperties(rd domain.Reader) map[string]any {
	props := map[string]any{
		"fullName":  rd.FullName,
		"email":     rd.Email,
		"updatedAt": formatTime(rd.UpdatedAt),
	}
	if !rd.CreatedAt.IsZero() {
		props["createdAt"] = formatTime(rd.CreatedAt)
	}
	return props
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return formatTime(*t)
}

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func toTimePtr(val any) *time.Time {
	switch v := val.(type) {
	case time.Time:
		return &v
	case string:
		if v == "" {
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return &parsed
		}
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			return &parsed
		}
	}
	return nil
}

const upsertBookCypher = `
MERGE (b:Book {id: $bookId})
SET b += $props
RETURN b.id AS bookId
`

const upsertReaderCypher = `
MERGE (r:Reader {id: $readerId})
SET r += $props
RETURN r.id AS readerId
`

const recordBorrowCypher = `
MATCH (r:Reader {id: $readerId})
MATCH (b:Book {id: $bookId})
MERGE (r)-[br:BORROWED {id: $borrowId}]->(b)
SET br.borrowedAt = $borrowedAt,
    br.returnedAt = $returnedAt
RETURN br.id AS borrowId
`

const borrowHistoryCypher = `
MATCH (:Reader {id: $readerId})-[br:BORROWED]->(b:Book)
RETURN b.id AS bookId, br.borrowedAt AS borrowedAt
ORDER BY br.borrowedAt ASC, b.id ASC
`

const coBorrowersCypher = `
MATCH (r:Reader)-[br:BORROWED]->(:Book {id: $bookId})
RETURN r.id AS readerId, br.borrowedAt AS borrowedAt
ORDER BY r.id ASC, br.borrowedAt ASC
`

const bookMetadataCypher = `
MATCH (b:Book {id: $bookId})
RETURN b.id AS bookId, b.title AS title, b.author AS author, b.genre AS genre
LIMIT 1
`
