package models

import "time"

// Kind distinguishes the two verification tracks.
type Kind string

const (
	KindHuman Kind = "human"
	KindAI    Kind = "ai"
)

// Lifetimes for issued challenges. AI agents get a tight window since the
// task is trivially mechanical for them.
const (
	HumanTTL = 5 * time.Minute
	AITTL    = 1 * time.Minute
)

// Challenge is the stored record behind an issued challenge of either kind.
// Answer is empty for behavioral challenges.
type Challenge struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Answer    string    `json:"answer,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the challenge's deadline has passed.
func (c Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// HumanChallenge is the wire form of a behavioral challenge.
type HumanChallenge struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Prompt    string    `json:"prompt"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AIChallenge is the wire form of a computational challenge.
type AIChallenge struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Difficulty int       `json:"difficulty"`
	Payload    string    `json:"payload"`
	TimeLimit  int       `json:"time_limit_ms"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ValidationRequest carries a human's response to a behavioral challenge.
type ValidationRequest struct {
	ChallengeID string `json:"challenge_id"`
	Response    string `json:"response"`
}

// ValidationResult reports the outcome of a human validation attempt.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// AIValidationRequest carries an agent's solution to a computational
// challenge. Reasoning is accepted but not scored.
type AIValidationRequest struct {
	ChallengeID string `json:"challenge_id"`
	Solution    string `json:"solution"`
	Reasoning   string `json:"reasoning"`
}

// AIValidationResult reports the outcome of an AI validation attempt.
type AIValidationResult struct {
	Valid         bool    `json:"valid"`
	AutonomyScore float64 `json:"autonomy_score"`
	Message       string  `json:"message"`
}
