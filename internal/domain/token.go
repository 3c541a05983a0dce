package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// TokenPair holds an access and refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthToken is a static API key. Each user has at most one.
type AuthToken struct {
	Key       string
	UserID    int64
	CreatedAt time.Time
}

// NewAuthTokenKey returns a random 40 character hex key.
func NewAuthTokenKey() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate auth token key: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// IsAuthTokenKey reports whether s has the shape of a key from NewAuthTokenKey.
func IsAuthTokenKey(s string) bool {
	if len(s) != 40 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
