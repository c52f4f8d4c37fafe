package model

import "time"

// IdentityKind separates the login session from the in-page re-authentication.
type IdentityKind string

const (
	// KindSession is issued by the regular login.
	KindSession IdentityKind = "session"
	// KindPage is issued by the account page re-authentication and guards store actions.
	KindPage IdentityKind = "page"
)

// TokenData contains the data stored with an identity token.
type TokenData struct {
	Kind      IdentityKind `json:"kind"`
	UserID    int64        `json:"user_id"`
	Name      string       `json:"name"`
	CreatedAt time.Time    `json:"created_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// AuthenticatedSession is the identity established by the login flow.
type AuthenticatedSession struct {
	UserID int64
	Name   string
	Token  string
}

// PageScopedIdentity is the identity established by the account page
// re-authentication. It is never derived from an AuthenticatedSession.
type PageScopedIdentity struct {
	UserID int64
	Name   string
	Token  string
}
