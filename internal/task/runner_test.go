package task

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripbuddy/tripbuddy-api/internal/job"
	"github.com/tripbuddy/tripbuddy-api/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memJobStore is an in-memory job.Store for runner tests.
type memJobStore struct {
	mu   sync.Mutex
	jobs map[string]*job.Record
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: make(map[string]*job.Record)}
}

func (m *memJobStore) CreateJob(_ context.Context, rec *job.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[rec.ID]; ok {
		return store.ErrJobExists
	}
	// Persist the record verbatim, as the real store does.
	copied := *rec
	m.jobs[rec.ID] = &copied
	return nil
}

func (m *memJobStore) GetJob(_ context.Context, id string) (*job.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.jobs[id]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	copied := *rec
	return &copied, nil
}

func (m *memJobStore) UpdateJobState(_ context.Context, id string, state job.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.jobs[id]
	if !ok {
		return store.ErrJobNotFound
	}
	rec.State = state
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memJobStore) DeleteJob(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return store.ErrJobNotFound
	}
	delete(m.jobs, id)
	return nil
}

func (m *memJobStore) ListJobsByState(_ context.Context, state job.State) ([]*job.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*job.Record
	for _, rec := range m.jobs {
		if rec.State == state {
			copied := *rec
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memJobStore) state(id string) job.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.jobs[id]
	if !ok {
		return job.StateAbsent
	}
	return rec.State
}

// recordingProcessor captures processed payloads.
type recordingProcessor struct {
	mu       sync.Mutex
	payloads []job.Payload
	err      error
	done     chan struct{}
}

func newRecordingProcessor(expected int) *recordingProcessor {
	p := &recordingProcessor{}
	if expected > 0 {
		p.done = make(chan struct{}, expected)
	}
	return p
}

func (p *recordingProcessor) Process(_ context.Context, payload job.Payload) error {
	p.mu.Lock()
	p.payloads = append(p.payloads, payload)
	p.mu.Unlock()
	if p.done != nil {
		p.done <- struct{}{}
	}
	return p.err
}

func (p *recordingProcessor) processed() []job.Payload {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]job.Payload(nil), p.payloads...)
}

func waitFor(t *testing.T, ch <-chan struct{}, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for job %d of %d", i+1, n)
		}
	}
}

func testPayload() job.Payload {
	return job.Payload{
		Cities:       []string{"Goa"},
		StartDate:    time.Now().UTC(),
		EndDate:      time.Now().UTC().Add(72 * time.Hour),
		MinBudget:    5000,
		MaxBudget:    20000,
		Interests:    []string{"beaches"},
		Currency:     "Rupees",
		ItineraryID:  uuid.New(),
		GenerationID: uuid.New(),
		TripID:       uuid.New(),
	}
}

func TestRunnerProcessesAndResolvesJob(t *testing.T) {
	t.Parallel()

	jobs := newMemJobStore()
	queue := job.NewQueue(jobs, 10, testLogger())
	processor := newRecordingProcessor(1)

	runner := NewGenerationRunner(queue, processor, RunnerConfig{
		WorkerCount: 1,
		MaxStarts:   100,
		StartWindow: time.Second,
	}, testLogger())
	runner.Start()
	defer runner.Stop()

	payload := testPayload()
	id := job.IDFor(payload.GenerationID)
	require.NoError(t, queue.Enqueue(context.Background(), id, payload))

	waitFor(t, processor.done, 1)

	require.Eventually(t, func() bool {
		return jobs.state(id) == job.StateResolved
	}, 5*time.Second, 10*time.Millisecond)

	processed := processor.processed()
	require.Len(t, processed, 1)
	assert.Equal(t, payload.GenerationID, processed[0].GenerationID)
}

func TestRunnerLeavesJobActiveOnProcessorError(t *testing.T) {
	t.Parallel()

	jobs := newMemJobStore()
	queue := job.NewQueue(jobs, 10, testLogger())
	processor := newRecordingProcessor(1)
	processor.err = assert.AnError

	runner := NewGenerationRunner(queue, processor, RunnerConfig{
		WorkerCount: 1,
		MaxStarts:   100,
		StartWindow: time.Second,
	}, testLogger())
	runner.Start()
	defer runner.Stop()

	payload := testPayload()
	id := job.IDFor(payload.GenerationID)
	require.NoError(t, queue.Enqueue(context.Background(), id, payload))

	waitFor(t, processor.done, 1)

	require.Eventually(t, func() bool {
		return jobs.state(id) == job.StateActive
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, job.StateActive, jobs.state(id))
}

func TestRunnerResolvesPoisonPayload(t *testing.T) {
	t.Parallel()

	jobs := newMemJobStore()
	queue := job.NewQueue(jobs, 10, testLogger())
	processor := newRecordingProcessor(0)

	runner := NewGenerationRunner(queue, processor, RunnerConfig{
		WorkerCount: 1,
		MaxStarts:   100,
		StartWindow: time.Second,
	}, testLogger())
	runner.Start()
	defer runner.Stop()

	// Persist a record with an undecodable payload and dispatch it by hand
	// through recovery.
	require.NoError(t, jobs.CreateJob(context.Background(), &job.Record{
		ID:      "itinerary-broken",
		Payload: []byte("{not json"),
		State:   job.StateWaiting,
	}))
	require.NoError(t, queue.Recover(context.Background()))

	require.Eventually(t, func() bool {
		return jobs.state("itinerary-broken") == job.StateResolved
	}, 5*time.Second, 10*time.Millisecond)
	assert.Empty(t, processor.processed())
}

func TestRunnerRateLimitsStarts(t *testing.T) {
	t.Parallel()

	jobs := newMemJobStore()
	queue := job.NewQueue(jobs, 10, testLogger())
	processor := newRecordingProcessor(3)

	// Burst of 1, one additional start every 200ms.
	runner := NewGenerationRunner(queue, processor, RunnerConfig{
		WorkerCount: 3,
		MaxStarts:   1,
		StartWindow: 200 * time.Millisecond,
	}, testLogger())
	runner.Start()
	defer runner.Stop()

	start := time.Now()
	for i := 0; i < 3; i++ {
		payload := testPayload()
		require.NoError(t, queue.Enqueue(context.Background(), job.IDFor(payload.GenerationID), payload))
	}

	waitFor(t, processor.done, 3)
	elapsed := time.Since(start)

	// Three starts at 1 per 200ms: the third cannot begin before ~400ms.
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
}

func TestRunnerStopDrainsWorkers(t *testing.T) {
	t.Parallel()

	jobs := newMemJobStore()
	queue := job.NewQueue(jobs, 10, testLogger())
	processor := newRecordingProcessor(0)

	runner := NewGenerationRunner(queue, processor, DefaultRunnerConfig(), testLogger())
	runner.Start()

	done := make(chan struct{})
	go func() {
		runner.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
}
