package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"nexus/pkg/platform/sentinel"
)

const challengeTimeout = 10 * time.Second

// ChallengeClient calls the verification service to validate AI challenge
// solutions. Any transport-level failure (timeout, refused connection,
// non-200 status, malformed body) wraps sentinel.ErrUnavailable so callers
// can distinguish "could not ask" from "asked, and the answer was no".
type ChallengeClient struct {
	client  *http.Client
	baseURL string
}

// ChallengeClientOption configures a ChallengeClient.
type ChallengeClientOption func(*ChallengeClient)

// WithChallengeHTTPClient overrides the HTTP client.
func WithChallengeHTTPClient(c *http.Client) ChallengeClientOption {
	return func(cc *ChallengeClient) { cc.client = c }
}

func NewChallengeClient(baseURL string, opts ...ChallengeClientOption) *ChallengeClient {
	cc := &ChallengeClient{
		client:  &http.Client{Timeout: challengeTimeout},
		baseURL: baseURL,
	}
	for _, opt := range opts {
		opt(cc)
	}
	return cc
}

type aiValidateRequest struct {
	ChallengeID string `json:"challenge_id"`
	Solution    string `json:"solution"`
}

type aiValidateResponse struct {
	Valid         bool    `json:"valid"`
	AutonomyScore float64 `json:"autonomy_score"`
	Message       string  `json:"message"`
}

// ValidateAI submits a challenge solution for scoring.
func (c *ChallengeClient) ValidateAI(ctx context.Context, challengeID, solution string) (bool, float64, error) {
	payload, err := json.Marshal(aiValidateRequest{ChallengeID: challengeID, Solution: solution})
	if err != nil {
		return false, 0, fmt.Errorf("encode challenge validation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/verify/ai/validate", bytes.NewReader(payload))
	if err != nil {
		return false, 0, fmt.Errorf("build challenge validation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, 0, fmt.Errorf("challenge validation call failed: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, 0, fmt.Errorf("challenge validation returned status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}

	var body aiValidateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, 0, fmt.Errorf("decode challenge validation response: %w: %w", sentinel.ErrUnavailable, err)
	}
	return body.Valid, body.AutonomyScore, nil
}
