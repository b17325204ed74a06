package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBorrowEventDeriveID(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := BorrowEvent{UserID: "R1", BookID: "B1", BorrowedAt: at}

	id := e.DeriveID()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())

	same := BorrowEvent{UserID: "R1", BookID: "B1", BorrowedAt: at.In(time.FixedZone("X", 3600))}
	assert.Equal(t, id, same.DeriveID(), "zone must not matter")

	later := BorrowEvent{UserID: "R1", BookID: "B1", BorrowedAt: at.Add(time.Second)}
	assert.NotEqual(t, id, later.DeriveID())
}
