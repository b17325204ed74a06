package domain

import "time"

// Reader aggregates the canonical library member data.
type Reader struct {
	ID        string
	FullName  string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
