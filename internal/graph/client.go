package graph

import (
	"context"
	"errors"
)

// Client is what the library repository needs from a graph database.
type Client interface {
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Result, error)
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Result holds the fully consumed records of one statement.
type Result struct {
	Records []Record
}

// Record maps returned column names to their values.
type Record map[string]any

// Options configures a graph client implementation.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// ErrMissingURI indicates the graph URI is not provided.
var ErrMissingURI = errors.New("graph URI is required")

// Schema lists the constraints the library graph relies on. Each statement is
// idempotent.
var Schema = []string{
	"CREATE CONSTRAINT reader_id IF NOT EXISTS FOR (r:Reader) REQUIRE r.id IS UNIQUE",
	"CREATE CONSTRAINT book_id IF NOT EXISTS FOR (b:Book) REQUIRE b.id IS UNIQUE",
	"CREATE INDEX borrowed_at IF NOT EXISTS FOR ()-[r:BORROWED]-() ON (r.borrowedAt)",
}

// EnsureSchema applies Schema through client.
func EnsureSchema(ctx context.Context, client Client) error {
	for _, stmt := range Schema {
		if _, err := client.ExecuteWrite(ctx, stmt, nil); err != nil {
			return err
		}
	}
	return nil
}
