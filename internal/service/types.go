package service

import "time"

// BookInput is the inbound payload for a catalogue entry.
type BookInput struct {
	ID            string `validate:"required,max=128"`
	Title         string `validate:"required"`
	Author        string
	ISBN          string `validate:"omitempty,isbn"`
	Genre         string
	PublishedYear int `validate:"gte=0"`
	CreatedAt     *time.Time
	UpdatedAt     *time.Time
}

// ReaderInput is the inbound payload for a library member.
type ReaderInput struct {
	ID        string `validate:"required,max=128"`
	FullName  string
	Email     string `validate:"omitempty,email"`
	CreatedAt *time.Time
	UpdatedAt *time.Time
}

// BorrowInput records one checkout. ID is derived from the other fields when empty.
type BorrowInput struct {
	ID         string
	ReaderID   string    `validate:"required,max=128"`
	BookID     string    `validate:"required,max=128"`
	BorrowedAt time.Time `validate:"required"`
	ReturnedAt *time.Time
}
