package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/challenge/models"
	"nexus/internal/challenge/store"
)

func TestSaveAndConsume(t *testing.T) {
	s := New()

	ch := models.Challenge{
		ID:        "abc123",
		Kind:      models.KindAI,
		Answer:    "6ca13d52",
		ExpiresAt: time.Now().Add(time.Minute),
	}
	require.NoError(t, s.Save(t.Context(), ch))

	got, err := s.Consume(t.Context(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, ch, got)

	_, err = s.Consume(t.Context(), "abc123")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestConsumeUnknown(t *testing.T) {
	s := New()
	_, err := s.Consume(t.Context(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestConcurrentConsumeIsSingleUse(t *testing.T) {
	s := New()
	require.NoError(t, s.Save(t.Context(), models.Challenge{
		ID:        "contested",
		Kind:      models.KindHuman,
		ExpiresAt: time.Now().Add(time.Minute),
	}))

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Consume(t.Context(), "contested")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes int
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, store.ErrNotFound)
		}
	}
	assert.Equal(t, 1, successes)
}
