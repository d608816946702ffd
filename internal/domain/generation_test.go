package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPlan() *Plan {
	return &Plan{
		Days: []PlanDay{
			{
				Day: 1,
				Places: []PlanPlace{
					{
						Name:        "Louvre Museum",
						TimeToSpend: "3 hours",
						Address:     "Rue de Rivoli, Paris",
						ThingsToDo:  "See the Mona Lisa and the Egyptian antiquities",
					},
				},
			},
		},
	}
}

func TestNewGeneration(t *testing.T) {
	t.Parallel()

	t.Run("creates pending generation with attempt zero", func(t *testing.T) {
		itineraryID := uuid.New()
		gen, err := NewGeneration(itineraryID)

		require.NoError(t, err)
		assert.Equal(t, GenerationStatusPending, gen.Status)
		assert.Equal(t, 0, gen.AttemptNumber)
		assert.Empty(t, gen.GenerationKey)
		assert.Nil(t, gen.GeneratedPlan)
		assert.Empty(t, gen.ErrorMessage)
		assert.Equal(t, itineraryID, gen.ItineraryID)
		assert.NotEqual(t, uuid.Nil, gen.ID)
	})

	t.Run("rejects nil itinerary ID", func(t *testing.T) {
		gen, err := NewGeneration(uuid.Nil)

		assert.ErrorIs(t, err, ErrEmptyGenerationItinerary)
		assert.Nil(t, gen)
	})
}

func TestGenerationStart(t *testing.T) {
	t.Parallel()

	t.Run("pending to running increments attempt and clears prior result", func(t *testing.T) {
		gen, err := NewGeneration(uuid.New())
		require.NoError(t, err)

		err = gen.Start()

		require.NoError(t, err)
		assert.Equal(t, GenerationStatusRunning, gen.Status)
		assert.Equal(t, 1, gen.AttemptNumber)
		assert.Nil(t, gen.GeneratedPlan)
		assert.Empty(t, gen.ErrorMessage)
	})

	t.Run("failed to running is legal for queue redelivery", func(t *testing.T) {
		gen, err := NewGeneration(uuid.New())
		require.NoError(t, err)
		require.NoError(t, gen.Start())
		require.NoError(t, gen.Fail("provider timeout"))

		err = gen.Start()

		require.NoError(t, err)
		assert.Equal(t, GenerationStatusRunning, gen.Status)
		assert.Empty(t, gen.ErrorMessage)
	})

	t.Run("running cannot start again", func(t *testing.T) {
		gen, err := NewGeneration(uuid.New())
		require.NoError(t, err)
		require.NoError(t, gen.Start())

		err = gen.Start()

		assert.ErrorIs(t, err, ErrInvalidGenerationStatus)
	})

	t.Run("completed cannot start", func(t *testing.T) {
		gen, err := NewGeneration(uuid.New())
		require.NoError(t, err)
		require.NoError(t, gen.Start())
		require.NoError(t, gen.Succeed(validPlan(), "key", nil))

		err = gen.Start()

		assert.ErrorIs(t, err, ErrInvalidGenerationStatus)
	})
}

func TestGenerationSucceed(t *testing.T) {
	t.Parallel()

	t.Run("stores plan key and meta and clears error", func(t *testing.T) {
		gen, err := NewGeneration(uuid.New())
		require.NoError(t, err)
		require.NoError(t, gen.Start())
		require.NoError(t, gen.Fail("first try failed"))
		require.NoError(t, gen.Start())

		meta := json.RawMessage(`{"total_tokens":1234}`)
		plan := validPlan()
		err = gen.Succeed(plan, "abc123", meta)

		require.NoError(t, err)
		assert.Equal(t, GenerationStatusCompleted, gen.Status)
		assert.Equal(t, plan, gen.GeneratedPlan)
		assert.Equal(t, "abc123", gen.GenerationKey)
		assert.Equal(t, meta, gen.Meta)
		assert.Empty(t, gen.ErrorMessage, "succeed must clear any previous error message")
		require.NotNil(t, gen.CompletedAt)
		assert.WithinDuration(t, time.Now().UTC(), *gen.CompletedAt, time.Minute)
		assert.True(t, gen.Terminal())
	})

	t.Run("rejected when not running", func(t *testing.T) {
		gen, err := NewGeneration(uuid.New())
		require.NoError(t, err)

		err = gen.Succeed(validPlan(), "key", nil)

		assert.ErrorIs(t, err, ErrGenerationNotRunning)
	})
}

func TestGenerationFail(t *testing.T) {
	t.Parallel()

	t.Run("stores error and never populates plan", func(t *testing.T) {
		gen, err := NewGeneration(uuid.New())
		require.NoError(t, err)
		require.NoError(t, gen.Start())

		err = gen.Fail("provider returned malformed JSON")

		require.NoError(t, err)
		assert.Equal(t, GenerationStatusFailed, gen.Status)
		assert.Equal(t, "provider returned malformed JSON", gen.ErrorMessage)
		assert.Nil(t, gen.GeneratedPlan, "fail must never populate the generated plan")
		require.NotNil(t, gen.CompletedAt)
		assert.True(t, gen.Terminal())
	})

	t.Run("rejected when not running", func(t *testing.T) {
		gen, err := NewGeneration(uuid.New())
		require.NoError(t, err)

		err = gen.Fail("boom")

		assert.ErrorIs(t, err, ErrGenerationNotRunning)
	})
}

func TestGenerationRearm(t *testing.T) {
	t.Parallel()

	t.Run("failed to pending resets state and increments attempt", func(t *testing.T) {
		gen, err := NewGeneration(uuid.New())
		require.NoError(t, err)
		require.NoError(t, gen.Start())
		require.NoError(t, gen.Fail("timeout"))
		require.Equal(t, 1, gen.AttemptNumber)

		err = gen.Rearm()

		require.NoError(t, err)
		assert.Equal(t, GenerationStatusPending, gen.Status)
		assert.Equal(t, 2, gen.AttemptNumber)
		assert.Empty(t, gen.ErrorMessage)
		assert.Empty(t, gen.GenerationKey)
		assert.Nil(t, gen.GeneratedPlan)
		assert.Nil(t, gen.CompletedAt)
	})

	t.Run("rejected from pending with conflict", func(t *testing.T) {
		gen, err := NewGeneration(uuid.New())
		require.NoError(t, err)

		err = gen.Rearm()

		assert.ErrorIs(t, err, ErrGenerationInFlight)
		assert.Equal(t, GenerationStatusPending, gen.Status)
		assert.Equal(t, 0, gen.AttemptNumber, "rejected rearm must not mutate state")
	})

	t.Run("rejected from running with conflict", func(t *testing.T) {
		gen, err := NewGeneration(uuid.New())
		require.NoError(t, err)
		require.NoError(t, gen.Start())

		err = gen.Rearm()

		assert.ErrorIs(t, err, ErrGenerationInFlight)
		assert.Equal(t, GenerationStatusRunning, gen.Status)
	})

	t.Run("rejected from completed", func(t *testing.T) {
		gen, err := NewGeneration(uuid.New())
		require.NoError(t, err)
		require.NoError(t, gen.Start())
		require.NoError(t, gen.Succeed(validPlan(), "key", nil))

		err = gen.Rearm()

		assert.ErrorIs(t, err, ErrInvalidGenerationStatus)
		assert.Equal(t, GenerationStatusCompleted, gen.Status)
	})
}
