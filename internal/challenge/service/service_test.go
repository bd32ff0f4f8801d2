package service

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/challenge/models"
	"nexus/internal/challenge/store/memory"
)

func frozenClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func expectedSolution(id string) string {
	sum := sha256.Sum256([]byte(id[:8]))
	return hex.EncodeToString(sum[:])[:8]
}

func TestHumanChallengeLifecycle(t *testing.T) {
	svc := New(memory.New())

	ch, err := svc.NewHumanChallenge(t.Context())
	require.NoError(t, err)
	assert.NotEmpty(t, ch.ID)
	assert.Equal(t, "behavioral", ch.Type)
	assert.NotEmpty(t, ch.Prompt)

	result, err := svc.ValidateHuman(t.Context(), ch.ID)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "Human verification passed", result.Message)

	// Consumed on first use.
	result, err = svc.ValidateHuman(t.Context(), ch.ID)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "Challenge not found or expired", result.Message)
}

func TestHumanChallengeExpiry(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	svc := New(memory.New(), WithClock(func() time.Time { return clock }))

	ch, err := svc.NewHumanChallenge(t.Context())
	require.NoError(t, err)
	assert.Equal(t, now.Add(models.HumanTTL), ch.ExpiresAt)

	clock = now.Add(models.HumanTTL + time.Second)
	result, err := svc.ValidateHuman(t.Context(), ch.ID)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "Challenge expired", result.Message)
}

func TestAIChallengeCorrectSolution(t *testing.T) {
	svc := New(memory.New())

	ch, err := svc.NewAIChallenge(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "computational", ch.Type)
	assert.Equal(t, 1, ch.Difficulty)
	assert.Equal(t, 5000, ch.TimeLimit)
	assert.Contains(t, ch.Payload, ch.ID[:8])

	result, err := svc.ValidateAI(t.Context(), ch.ID, expectedSolution(ch.ID))
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.InDelta(t, 0.95, result.AutonomyScore, 1e-9)
	assert.Equal(t, "AI verification passed - autonomy confirmed", result.Message)
}

func TestAIChallengeWrongSolution(t *testing.T) {
	svc := New(memory.New())

	ch, err := svc.NewAIChallenge(t.Context())
	require.NoError(t, err)

	result, err := svc.ValidateAI(t.Context(), ch.ID, "deadbeef")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Zero(t, result.AutonomyScore)
	assert.Equal(t, "Incorrect solution", result.Message)

	// A wrong attempt still burns the challenge.
	result, err = svc.ValidateAI(t.Context(), ch.ID, expectedSolution(ch.ID))
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "Challenge not found or expired", result.Message)
}

func TestAIChallengeExpiry(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	svc := New(memory.New(), WithClock(func() time.Time { return clock }))

	ch, err := svc.NewAIChallenge(t.Context())
	require.NoError(t, err)
	assert.Equal(t, now.Add(models.AITTL), ch.ExpiresAt)

	clock = now.Add(models.AITTL + time.Second)
	result, err := svc.ValidateAI(t.Context(), ch.ID, expectedSolution(ch.ID))
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "Challenge expired", result.Message)
}

func TestValidateUnknownChallenge(t *testing.T) {
	svc := New(memory.New())

	human, err := svc.ValidateHuman(t.Context(), "no-such-id")
	require.NoError(t, err)
	assert.False(t, human.Valid)
	assert.Equal(t, "Challenge not found or expired", human.Message)

	ai, err := svc.ValidateAI(t.Context(), "no-such-id", "whatever")
	require.NoError(t, err)
	assert.False(t, ai.Valid)
	assert.Equal(t, "Challenge not found or expired", ai.Message)
}

func TestChallengeKindsDoNotCross(t *testing.T) {
	svc := New(memory.New())

	human, err := svc.NewHumanChallenge(t.Context())
	require.NoError(t, err)

	// A behavioral ID replayed against the computational endpoint is treated
	// as unknown, not as a free pass.
	result, err := svc.ValidateAI(t.Context(), human.ID, expectedSolution(human.ID))
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "Challenge not found or expired", result.Message)
}

func TestInjectedIDGenerator(t *testing.T) {
	svc := New(memory.New(), WithIDGenerator(func() string { return "feedface-0000-4000-8000-000000000001" }))

	ch, err := svc.NewAIChallenge(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "feedface-0000-4000-8000-000000000001", ch.ID)
	assert.Contains(t, ch.Payload, "'feedface'")
}
