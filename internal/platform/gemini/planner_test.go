package gemini

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripbuddy/tripbuddy-api/internal/generation"
)

func testParams() generation.Params {
	return generation.Params{
		Cities:    []string{"Jaipur", "Udaipur"},
		StartDate: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 10, 4, 0, 0, 0, 0, time.UTC),
		MinBudget: 10000,
		MaxBudget: 50000,
		Interests: []string{"forts", "food"},
		Currency:  "Rupees",
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	prompt := buildPrompt(testParams())

	assert.Contains(t, prompt, "Start Date: 2026-10-01")
	assert.Contains(t, prompt, "End Date: 2026-10-04")
	assert.Contains(t, prompt, "Budget: Rupees 10000-Rupees 50000")
	assert.Contains(t, prompt, "Cities: Jaipur, Udaipur")
	assert.Contains(t, prompt, "Interests: forts, food")
	assert.Contains(t, prompt, "2-3 attractions")
	assert.Contains(t, prompt, `"timeToSpend"`)
	assert.Contains(t, prompt, "strictly follow this structure")
}

func TestParsePlan(t *testing.T) {
	t.Parallel()

	text := `{
		"days": [
			{
				"day": 1,
				"places": [
					{
						"name": "Amber Fort",
						"timeToSpend": "3 hours",
						"address": "Devisinghpura, Amer, Jaipur",
						"thingsToDo": "Explore the palace complex and light show"
					},
					{
						"name": "Hawa Mahal",
						"timeToSpend": "1 hour",
						"address": "Badi Choupad, Jaipur",
						"thingsToDo": "Photograph the facade"
					}
				]
			}
		]
	}`

	plan, err := parsePlan(text)
	require.NoError(t, err)
	require.Len(t, plan.Days, 1)
	assert.Equal(t, 1, plan.Days[0].Day)
	require.Len(t, plan.Days[0].Places, 2)
	assert.Equal(t, "Amber Fort", plan.Days[0].Places[0].Name)
	assert.Equal(t, "3 hours", plan.Days[0].Places[0].TimeToSpend)
}

func TestParsePlanStripsMarkdownFence(t *testing.T) {
	t.Parallel()

	text := "```json\n" + `{"days":[{"day":1,"places":[{"name":"Amber Fort","timeToSpend":"3 hours","address":"Amer","thingsToDo":"Explore"}]}]}` + "\n```"

	plan, err := parsePlan(text)
	require.NoError(t, err)
	assert.Equal(t, "Amber Fort", plan.Days[0].Places[0].Name)
}

func TestParsePlanInvalid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
	}{
		{name: "not json", text: "Here is your itinerary!"},
		{name: "empty days", text: `{"days":[]}`},
		{name: "day with no places", text: `{"days":[{"day":1,"places":[]}]}`},
		{name: "place missing name", text: `{"days":[{"day":1,"places":[{"timeToSpend":"1 hour","thingsToDo":"Walk"}]}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parsePlan(tc.text)
			require.Error(t, err)
			assert.ErrorIs(t, err, generation.ErrInvalidResponse)
		})
	}
}
