package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/czar/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanQueue struct {
	ch chan string
}

func newChanQueue() *chanQueue { return &chanQueue{ch: make(chan string, 16)} }

func (q *chanQueue) Pop(ctx context.Context, timeout time.Duration) (string, bool, error) {
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case p := <-q.ch:
		return p, true, nil
	case <-time.After(timeout):
		return "", false, nil
	}
}

func (q *chanQueue) push(t *testing.T, r models.RoundResult) {
	t.Helper()
	data, err := json.Marshal(r)
	require.NoError(t, err)
	q.ch <- string(data)
}

type memStore struct {
	mu       sync.Mutex
	batches  [][]models.RoundResult
	failures int
}

func (m *memStore) InsertRoundResults(_ context.Context, results []models.RoundResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("connection refused")
	}
	m.batches = append(m.batches, append([]models.RoundResult(nil), results...))
	return nil
}

func (m *memStore) rounds() []models.RoundResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RoundResult
	for _, b := range m.batches {
		out = append(out, b...)
	}
	return out
}

func (m *memStore) batchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

func round(n int) models.RoundResult {
	return models.RoundResult{
		SessionID:   uuid.MustParse("6f1f3c5e-0000-4000-8000-000000000001"),
		RoomCode:    "4321",
		RoundNumber: n,
		WinnerID:    "c1",
		WinnerName:  "Alice",
		CardID:      "a1",
		CardText:    "an answer",
	}
}

// startService runs svc until the test ends and returns a stop func that
// waits for Run to return.
func startService(t *testing.T, svc *Service) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	stop := func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("Run did not return")
		}
	}
	t.Cleanup(cancel)
	return stop
}

func TestFlushesFullBatches(t *testing.T) {
	logger, _ := test.NewNullLogger()
	q, store := newChanQueue(), &memStore{}
	stop := startService(t, New(q, store, Options{BatchSize: 2, FlushInterval: time.Hour}, logger))

	for i := 1; i <= 4; i++ {
		q.push(t, round(i))
	}

	assert.Eventually(t, func() bool { return store.batchCount() == 2 }, 2*time.Second, 10*time.Millisecond)
	stop()
	got := store.rounds()
	require.Len(t, got, 4)
	for i, r := range got {
		assert.Equal(t, i+1, r.RoundNumber)
	}
}

func TestFlushesOnInterval(t *testing.T) {
	logger, _ := test.NewNullLogger()
	q, store := newChanQueue(), &memStore{}
	stop := startService(t, New(q, store, Options{BatchSize: 100, FlushInterval: 20 * time.Millisecond}, logger))
	defer stop()

	q.push(t, round(1))
	assert.Eventually(t, func() bool { return len(store.rounds()) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestFlushesPendingOnShutdown(t *testing.T) {
	logger, _ := test.NewNullLogger()
	q, store := newChanQueue(), &memStore{}
	stop := startService(t, New(q, store, Options{BatchSize: 100, FlushInterval: time.Hour}, logger))

	q.push(t, round(1))
	q.push(t, round(2))
	assert.Eventually(t, func() bool { return len(q.ch) == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, store.rounds())

	stop()
	assert.Len(t, store.rounds(), 2)
}

func TestSkipsInvalidPayloads(t *testing.T) {
	logger, hook := test.NewNullLogger()
	q, store := newChanQueue(), &memStore{}
	stop := startService(t, New(q, store, Options{BatchSize: 1, FlushInterval: time.Hour}, logger))

	q.ch <- "{not json"
	q.push(t, round(7))

	assert.Eventually(t, func() bool { return len(store.rounds()) == 1 }, 2*time.Second, 10*time.Millisecond)
	stop()

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "invalid round record" {
			warned = true
		}
	}
	assert.True(t, warned)
	assert.Equal(t, 7, store.rounds()[0].RoundNumber)
}

func TestRetainsBatchWhenStoreFails(t *testing.T) {
	logger, _ := test.NewNullLogger()
	q, store := newChanQueue(), &memStore{failures: 1}
	stop := startService(t, New(q, store, Options{BatchSize: 1, FlushInterval: 20 * time.Millisecond}, logger))
	defer stop()

	q.push(t, round(3))
	assert.Eventually(t, func() bool { return len(store.rounds()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 3, store.rounds()[0].RoundNumber)
}

func TestNewAppliesDefaults(t *testing.T) {
	logger, _ := test.NewNullLogger()
	svc := New(newChanQueue(), &memStore{}, Options{}, logger)
	assert.Equal(t, defaultBatchSize, svc.batchSize)
	assert.Equal(t, defaultFlush, svc.flush)
}
