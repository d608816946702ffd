package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestListRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		items []string
	}{
		{name: "single", items: []string{"Jaipur"}},
		{name: "multiple", items: []string{"Jaipur", "Udaipur", "Jodhpur"}},
		{name: "empty", items: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.items, splitList(joinList(tc.items)))
		})
	}
}

func TestUniqueViolationDetection(t *testing.T) {
	t.Parallel()

	pgErr := &pgconn.PgError{Code: pgUniqueViolationCode}
	assert.True(t, isUniqueViolation(pgErr))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert failed: %w", pgErr)))

	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: pgForeignKeyViolationCode}))
	assert.False(t, isUniqueViolation(errors.New("some other failure")))
	assert.False(t, isUniqueViolation(nil))
}

func TestForeignKeyViolationDetection(t *testing.T) {
	t.Parallel()

	pgErr := &pgconn.PgError{Code: pgForeignKeyViolationCode}
	assert.True(t, isForeignKeyViolation(pgErr))
	assert.True(t, isForeignKeyViolation(fmt.Errorf("insert failed: %w", pgErr)))

	assert.False(t, isForeignKeyViolation(&pgconn.PgError{Code: pgUniqueViolationCode}))
	assert.False(t, isForeignKeyViolation(nil))
}
