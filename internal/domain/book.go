package domain

import "time"

// Book models a catalogue entry.
type Book struct {
	ID            string
	Title         string
	Author        string
	ISBN          string
	Genre         string
	PublishedYear int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BookMetadata is the read-side projection of a book used for explanations.
type BookMetadata struct {
	BookID string
	Title  string
	Author string
	Genre  string
}
