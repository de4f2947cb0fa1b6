package validator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"\t\n", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, IsEmpty(c.input), "IsEmpty(%q)", c.input)
	}
}

func TestIsValidDate(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"2023-01-01", true},
		{"2000-12-31", true},
		{"2024-02-29", true},
		{"2023-02-29", false},
		{"2023-13-01", false},
		{"01-01-2023", false},
		{"2023/01/01", false},
		{"today", false},
		{"", false},
	}
	for _, c := range cases {
		_, ok := IsValidDate(c.input)
		assert.Equal(t, c.want, ok, "IsValidDate(%q)", c.input)
	}

	date, ok := IsValidDate("2025-01-15")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), date)
}

func TestValidationErrors(t *testing.T) {
	errs := ValidationErrors{
		{Field: "from_date", Message: "date must be in YYYY-MM-DD format"},
		{Field: "to_date", Message: "date must be in YYYY-MM-DD format"},
		{Field: "from_date", Message: "from_date must not be after to_date"},
	}

	assert.Equal(t,
		"from_date: date must be in YYYY-MM-DD format; to_date: date must be in YYYY-MM-DD format; from_date: from_date must not be after to_date",
		errs.Error(),
	)
	assert.Equal(t, map[string]string{
		"from_date": "from_date must not be after to_date",
		"to_date":   "date must be in YYYY-MM-DD format",
	}, errs.ToMap())

	var wrapped error = errs
	var target ValidationErrors
	assert.True(t, errors.As(wrapped, &target))
	assert.Len(t, target, 3)
}
