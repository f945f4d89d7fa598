package domain

import "time"

// Platform identifiers for the providers shipped with the server. The registry
// accepts any name, these are just the ones wired by default.
const (
	PlatformYouTube   = "youtube"
	PlatformTwitch    = "twitch"
	PlatformInstagram = "instagram"
	PlatformTikTok    = "tiktok"
	PlatformPatreon   = "patreon"
)

// Credential is the stored OAuth token pair for one (user, platform) pair.
// Token values are plaintext on this struct; the repository layer encrypts
// them before they touch storage and decrypts them on read.
type Credential struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	UserID       string    `bson:"user_id" json:"user_id"`
	Platform     string    `bson:"platform" json:"platform"`
	AccessToken  string    `bson:"-" json:"-"`
	RefreshToken string    `bson:"-" json:"-"`
	ExpiresAt    time.Time `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	Scope        string    `bson:"scope,omitempty" json:"scope,omitempty"`
	TokenType    string    `bson:"token_type,omitempty" json:"token_type,omitempty"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// Expired reports whether the credential's access token is past its expiry.
// A zero ExpiresAt means the provider issues non-expiring tokens.
func (c *Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Refreshable reports whether a refresh can be attempted at all.
func (c *Credential) Refreshable() bool {
	return c.RefreshToken != ""
}

// TokenGrant is the uniform result of a provider token exchange or refresh.
// RefreshToken may be empty, in which case the previously stored refresh
// token stays in effect. ExpiresIn of 0 means the token does not expire.
type TokenGrant struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

// CredentialRef identifies a stored credential without decrypting its
// secrets. The cleanup sweep iterates refs and only pulls the full record
// for entries that are actually past expiry.
type CredentialRef struct {
	UserID    string    `bson:"user_id"`
	Platform  string    `bson:"platform"`
	ExpiresAt time.Time `bson:"expires_at,omitempty"`
}

// Expired mirrors Credential.Expired for sweep iteration.
func (r CredentialRef) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}
