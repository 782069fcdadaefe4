package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestIsOverdue(t *testing.T) {
	today := time.Date(2026, 10, 18, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		due  string
		want bool
	}{
		{"due yesterday", "2026-10-17", true},
		{"due today", "2026-10-18", false},
		{"due tomorrow", "2026-10-19", false},
		{"due last year", "2025-10-18", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			due := mustDate(t, tt.due)
			bi := BookInstance{DueBack: &due}
			assert.Equal(t, tt.want, bi.IsOverdue(today))
		})
	}

	t.Run("no due date", func(t *testing.T) {
		assert.False(t, BookInstance{}.IsOverdue(today))
	})
}

func TestDisplayGenre(t *testing.T) {
	genres := []Genre{{Name: "Fantasy"}, {Name: "Horror"}, {Name: "Poetry"}, {Name: "Romance"}, {Name: "Satire"}}

	tests := []struct {
		name  string
		count int
		want  string
	}{
		{"none", 0, ""},
		{"one", 1, "Fantasy"},
		{"three", 3, "Fantasy, Horror, Poetry"},
		{"five", 5, "Fantasy, Horror, Poetry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Book{Genres: genres[:tt.count]}
			assert.Equal(t, tt.want, b.DisplayGenre())
		})
	}
}

func TestStringers(t *testing.T) {
	a := Author{FirstName: "Big", LastName: "Bob"}
	assert.Equal(t, "Bob Big", a.String())

	bi := BookInstance{ID: "abc", Book: &Book{Title: "Dune"}}
	assert.Equal(t, "abc Dune", bi.String())
}

func TestLoanStatusValid(t *testing.T) {
	for _, s := range []LoanStatus{StatusMaintenance, StatusOnLoan, StatusAvailable, StatusReserved} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, LoanStatus("lost").Valid())
	assert.False(t, LoanStatus("").Valid())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2026-02-03 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("03/02/2026")
	assert.Error(t, err)
}
