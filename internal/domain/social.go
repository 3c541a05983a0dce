package domain

import "time"

// ProviderGoogle is the provider key of Google sign-in.
const ProviderGoogle = "google"

// SocialApp is the stored client registration for an identity provider.
type SocialApp struct {
	ID        int64
	Provider  string
	Name      string
	ClientID  string
	Secret    string
	CreatedAt time.Time
}

// SocialAccount links a local user to a provider. There is at most one per
// user and provider.
type SocialAccount struct {
	ID        int64
	UserID    int64
	Provider  string
	UID       string
	CreatedAt time.Time
}

// SocialToken stores the provider token captured when the link was created.
type SocialToken struct {
	ID          int64
	AppID       int64
	AccountID   int64
	Token       string
	TokenSecret string
	ExpiresAt   *time.Time
}

// VerifiedIdentity is built only from a successful provider response that
// carried an email.
type VerifiedIdentity struct {
	Email string
	// Subject is the provider's stable user id ("sub"), empty if absent.
	Subject string
}

// Resolution is the outcome of resolving a verified identity to a local
// account.
type Resolution struct {
	User           *User
	Account        *SocialAccount
	AccountCreated bool
	LinkCreated    bool
}
