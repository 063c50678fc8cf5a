package validation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorNoFailures(t *testing.T) {
	var c Collector
	c.Required("name", "Maria")
	c.MinLength("name", "Maria", 3)
	c.OneOf("unit", "dias", []string{"dias", "semanas"})
	assert.NoError(t, c.Err())
}

func TestCollectorAccumulates(t *testing.T) {
	var c Collector
	c.Required("name", "   ")
	c.MinLength("doctor_name", "Dé", 3)
	c.OneOf("unit", "anos", []string{"dias", "semanas"})

	var nested Collector
	nested.Required("dosage", "")
	c.Nest("medications[1]", &nested)

	err := c.Err()
	require.Error(t, err)
	assert.Equal(t, []FieldError{
		{Field: "name", Message: "is required"},
		{Field: "doctor_name", Message: "must be at least 3 characters"},
		{Field: "unit", Message: "must be one of dias, semanas"},
		{Field: "medications[1].dosage", Message: "is required"},
	}, Fields(err))
	assert.Contains(t, err.Error(), "medications[1].dosage: is required")
}

func TestMinLengthCountsRunes(t *testing.T) {
	var c Collector
	c.MinLength("name", "Zé", 2)
	assert.NoError(t, c.Err())
}

func TestFieldsThroughWrapping(t *testing.T) {
	var c Collector
	c.Add("email", "is invalid")
	wrapped := fmt.Errorf("create profile: %w", c.Err())

	assert.True(t, IsValidationError(wrapped))
	assert.Len(t, Fields(wrapped), 1)
	assert.False(t, IsValidationError(errors.New("boom")))
	assert.Nil(t, Fields(errors.New("boom")))
}
