package generation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func keyParams() Params {
	return Params{
		Cities:    []string{"Paris", "Lyon"},
		StartDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC),
		MinBudget: 1000,
		MaxBudget: 5000,
		Interests: []string{"food", "museums"},
		Currency:  "EUR",
	}
}

func TestKeyIsDeterministic(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Key(keyParams()), Key(keyParams()))
	assert.Len(t, Key(keyParams()), 64)
}

func TestKeyChangesWithInputs(t *testing.T) {
	t.Parallel()

	base := Key(keyParams())

	budget := keyParams()
	budget.MaxBudget = 6000
	assert.NotEqual(t, base, Key(budget))

	dates := keyParams()
	dates.EndDate = dates.EndDate.AddDate(0, 0, 1)
	assert.NotEqual(t, base, Key(dates))

	// Exact-equality semantics: reordering is a different request.
	reordered := keyParams()
	reordered.Cities = []string{"Lyon", "Paris"}
	assert.NotEqual(t, base, Key(reordered))
}
