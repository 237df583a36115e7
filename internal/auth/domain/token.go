package domain

import "time"

// DeviceNone is the device id recorded when a client does not send one.
const DeviceNone = "none"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenPair is what the token endpoints return.
type TokenPair struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"` // always "bearer"
	ExpiresIn    int64    `json:"expires_in"` // seconds until the access token expires
	Scope        []string `json:"scope"`
}

// TokenState is the stored record of one issued token. It is created at
// issuance, only ever mutated by setting Revoked, and deleted by the expiry
// sweep once ExpiresAt has passed.
type TokenState struct {
	ID        string // jti, a UUID
	Type      TokenType
	Revoked   bool
	DeviceID  string
	ExpiresAt time.Time
	UserID    int64
	CreatedAt time.Time
}

// TokenStateIDs returns the ids of states in order.
func TokenStateIDs(states []TokenState) []string {
	ids := make([]string, 0, len(states))
	for _, s := range states {
		ids = append(ids, s.ID)
	}
	return ids
}
