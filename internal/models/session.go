package models

import "time"

// Principal identifies the authenticated user.
type Principal struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}

// Session is the client's record of authentication state. Principal is
// non-nil only if the last validation accepted the stored token.
type Session struct {
	Token       string     `json:"-"`
	Principal   *Principal `json:"principal,omitempty"`
	ValidatedAt time.Time  `json:"validated_at"`
	Expired     bool       `json:"expired,omitempty"`
}

// Authenticated reports whether a validated principal is present.
func (s Session) Authenticated() bool {
	return s.Principal != nil
}
