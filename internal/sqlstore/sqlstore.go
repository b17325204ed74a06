// Package sqlstore keeps the library catalogue and borrow events in SQLite.
// It serves the same reads as the graph repository and is meant for local
// runs, the CLI and tests.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/vanshika/shelfwise/internal/domain"
)

// timeLayout has fixed-width fractional seconds so stored timestamps sort
// lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrUnknownEndpoint is returned when a borrow references a reader or book that
// has not been stored.
var ErrUnknownEndpoint = errors.New("reader or book not found")

// Store manages the SQLite connection and schema.
type Store struct {
	db *sql.DB
}

// Open connects to the database at path, enables WAL and foreign keys, and
// creates the schema when missing. Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA foreign_keys=ON;", "PRAGMA busy_timeout=5000;"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS books (
		book_id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		author TEXT NOT NULL DEFAULT '',
		isbn TEXT NOT NULL DEFAULT '',
		genre TEXT NOT NULL DEFAULT '',
		published_year INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS readers (
		reader_id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS borrows (
		borrow_id TEXT PRIMARY KEY,
		reader_id TEXT NOT NULL REFERENCES readers(reader_id),
		book_id TEXT NOT NULL REFERENCES books(book_id),
		borrowed_at TEXT NOT NULL,
		returned_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_borrows_reader ON borrows(reader_id, borrowed_at);
	CREATE INDEX IF NOT EXISTS idx_borrows_book ON borrows(book_id, reader_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// UpsertBook inserts a book or refreshes its descriptive fields.
func (s *Store) UpsertBook(ctx context.Context, book domain.Book) error {
	if book.ID == "" {
		return errors.New("book id is required")
	}
	created, updated := stamps(book.CreatedAt, book.UpdatedAt)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (book_id, title, author, isbn, genre, published_year, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(book_id) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			isbn = excluded.isbn,
			genre = excluded.genre,
			published_year = excluded.published_year,
			updated_at = excluded.updated_at`,
		book.ID, book.Title, book.Author, book.ISBN, book.Genre, book.PublishedYear, created, updated)
	if err != nil {
		return fmt.Errorf("upsert book %s: %w", book.ID, err)
	}
	return nil
}

// UpsertReader inserts a reader or refreshes their profile.
func (s *Store) UpsertReader(ctx context.Context, reader domain.Reader) error {
	if reader.ID == "" {
		return errors.New("reader id is required")
	}
	created, updated := stamps(reader.CreatedAt, reader.UpdatedAt)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO readers (reader_id, full_name, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(reader_id) DO UPDATE SET
			full_name = excluded.full_name,
			email = excluded.email,
			updated_at = excluded.updated_at`,
		reader.ID, reader.FullName, reader.Email, created, updated)
	if err != nil {
		return fmt.Errorf("upsert reader %s: %w", reader.ID, err)
	}
	return nil
}

// RecordBorrow stores a borrow event. Recording the same event twice updates it
// in place.
func (s *Store) RecordBorrow(ctx context.Context, event domain.BorrowEvent) error {
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
	var returned any
	if event.ReturnedAt != nil && !event.ReturnedAt.IsZero() {
		returned = formatTime(*event.ReturnedAt)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO borrows (borrow_id, reader_id, book_id, borrowed_at, returned_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(borrow_id) DO UPDATE SET
			borrowed_at = excluded.borrowed_at,
			returned_at = excluded.returned_at`,
		id, event.UserID, event.BookID, formatTime(event.BorrowedAt), returned)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
			return fmt.Errorf("record borrow %s: %w", id, ErrUnknownEndpoint)
		}
		return fmt.Errorf("record borrow %s: %w", id, err)
	}
	return nil
}

// FindBorrowHistory returns every borrow of userID, oldest first.
func (s *Store) FindBorrowHistory(ctx context.Context, userID string) ([]domain.BorrowRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT book_id, borrowed_at FROM borrows
		WHERE reader_id = ?
		ORDER BY borrowed_at ASC, book_id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("borrow history query: %w", err)
	}
	defer rows.Close()

	var history []domain.BorrowRecord
	for rows.Next() {
		var bookID, at string
		if err := rows.Scan(&bookID, &at); err != nil {
			return nil, fmt.Errorf("scan borrow history: %w", err)
		}
		borrowedAt, err := parseTime(at)
		if err != nil {
			return nil, err
		}
		history = append(history, domain.BorrowRecord{BookID: bookID, BorrowedAt: borrowedAt})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate borrow history: %w", err)
	}
	return history, nil
}

// FindCoBorrowers returns one row per borrow of bookID.
func (s *Store) FindCoBorrowers(ctx context.Context, bookID string) ([]domain.CoBorrower, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT reader_id, borrowed_at FROM borrows
		WHERE book_id = ?
		ORDER BY reader_id ASC, borrowed_at ASC`, bookID)
	if err != nil {
		return nil, fmt.Errorf("co-borrowers query: %w", err)
	}
	defer rows.Close()

	var out []domain.CoBorrower
	for rows.Next() {
		var readerID, at string
		if err := rows.Scan(&readerID, &at); err != nil {
			return nil, fmt.Errorf("scan co-borrower: %w", err)
		}
		borrowedAt, err := parseTime(at)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.CoBorrower{UserID: readerID, BorrowedAt: borrowedAt})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate co-borrowers: %w", err)
	}
	return out, nil
}

// FindBookMetadata looks up the descriptive fields of a book.
func (s *Store) FindBookMetadata(ctx context.Context, bookID string) (domain.BookMetadata, bool, error) {
	meta := domain.BookMetadata{BookID: bookID}
	err := s.db.QueryRowContext(ctx, `SELECT title, author, genre FROM books WHERE book_id = ?`, bookID).
		Scan(&meta.Title, &meta.Author, &meta.Genre)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BookMetadata{}, false, nil
	}
	if err != nil {
		return domain.BookMetadata{}, false, fmt.Errorf("book metadata query: %w", err)
	}
	return meta, true, nil
}

// ReaderIDs lists every stored reader, sorted.
func (s *Store) ReaderIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT reader_id FROM readers ORDER BY reader_id`)
	if err != nil {
		return nil, fmt.Errorf("list readers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan reader: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func stamps(created, updated time.Time) (string, string) {
	now := time.Now()
	if updated.IsZero() {
		updated = now
	}
	if created.IsZero() {
		created = updated
	}
	return formatTime(created), formatTime(updated)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", v, err)
	}
	return t, nil
}
