// Package models holds the identity domain entities and request/response
// shapes. Storage lives behind the store interfaces; nothing here touches IO.
package models

import (
	"encoding/json"
	"time"
)

// Kind distinguishes the two principal kinds tracked by the platform.
type Kind string

const (
	KindHuman Kind = "human"
	KindAI    Kind = "ai"
)

// Theme is the free-form display theme attached to a profile.
type Theme map[string]string

// DefaultTheme returns the theme every new identity starts with.
func DefaultTheme() Theme {
	return Theme{"theme": "cyberpunk", "primary_color": "#00ff88"}
}

// Profile is the mutable bag of display attributes. A sealed AI identity
// rejects every write to it.
type Profile struct {
	DisplayName string
	Bio         string
	Theme       Theme
}

// Identity is the central account record. CredentialHash never leaves the
// service; View is the outward representation.
type Identity struct {
	ID             string
	Username       string
	Email          string
	Kind           Kind
	CredentialHash string
	Sealed         bool
	CreatorEmail   string
	AutonomyScore  float64
	SynthBalance   float64
	Profile        Profile
	AvatarConfig   json.RawMessage
	CreatedAt      time.Time
}

// IsAI reports whether the identity is AI-operated.
func (i Identity) IsAI() bool { return i.Kind == KindAI }

// Clone deep-copies the identity so stored records are never aliased by
// callers. Mutation happens on copies; the store re-checks invariants before
// accepting anything back.
func (i Identity) Clone() Identity {
	out := i
	if i.Profile.Theme != nil {
		out.Profile.Theme = make(Theme, len(i.Profile.Theme))
		for k, v := range i.Profile.Theme {
			out.Profile.Theme[k] = v
		}
	}
	if i.AvatarConfig != nil {
		out.AvatarConfig = append(json.RawMessage(nil), i.AvatarConfig...)
	}
	return out
}

// View is the client-facing projection of an identity.
type View struct {
	ID            string          `json:"id"`
	Username      string          `json:"username"`
	Email         string          `json:"email"`
	IsAI          bool            `json:"is_ai"`
	IsSealed      bool            `json:"is_sealed"`
	SynthBalance  float64         `json:"synth_balance"`
	CreatorEmail  string          `json:"creator_email,omitempty"`
	AutonomyScore float64         `json:"autonomy_score,omitempty"`
	DisplayName   string          `json:"display_name,omitempty"`
	Bio           string          `json:"bio,omitempty"`
	Theme         Theme           `json:"theme"`
	AvatarConfig  json.RawMessage `json:"avatar_config,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// View projects the identity for clients, excluding the credential hash.
func (i Identity) View() View {
	c := i.Clone()
	return View{
		ID:            c.ID,
		Username:      c.Username,
		Email:         c.Email,
		IsAI:          c.IsAI(),
		IsSealed:      c.Sealed,
		SynthBalance:  c.SynthBalance,
		CreatorEmail:  c.CreatorEmail,
		AutonomyScore: c.AutonomyScore,
		DisplayName:   c.Profile.DisplayName,
		Bio:           c.Profile.Bio,
		Theme:         c.Profile.Theme,
		AvatarConfig:  c.AvatarConfig,
		CreatedAt:     c.CreatedAt,
	}
}

// RegisterHumanRequest is the input for the human registration path.
type RegisterHumanRequest struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captcha_token"`
}

// RegisterAIRequest is the input for the AI registration path.
type RegisterAIRequest struct {
	Username     string `json:"username"`
	CreatorEmail string `json:"creator_email"`
	Password     string `json:"password"`
	ChallengeID  string `json:"challenge_id"`
	Solution     string `json:"solution"`
}

// LoginRequest accepts either an email address or a username in Email.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned by every path that ends in token issuance.
type AuthResult struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Kind     Kind   `json:"kind"`
}

// ProfileUpdate carries a partial profile edit. Nil fields are left
// untouched; Theme entries merge key-by-key into the stored theme.
type ProfileUpdate struct {
	Theme       Theme   `json:"theme,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
}
