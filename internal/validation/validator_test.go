package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string  `validate:"required"`
	Ratio float64 `validate:"gt=0,lt=1"`
	Mode  string  `validate:"oneof=a b"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(sample{Name: "x", Ratio: 0.5, Mode: "a"}))

	err := Struct(sample{Ratio: 2, Mode: "c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sample.Name is required")
	assert.Contains(t, err.Error(), "sample.Ratio must satisfy lt=1, got 2")
	assert.Contains(t, err.Error(), "sample.Mode must be one of [a b], got c")
}
