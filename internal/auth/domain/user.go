package domain

import "time"

type User struct {
	ID            string
	Username      string
	PreferredName string
	PasswordHash  string   // argon2 encoded
	Scopes        []string // space-delimited in storage
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Principal is the slice of a user that leaves the service: the identity
// claims tokens and userinfo responses carry. No credentials, no timestamps.
type Principal struct {
	ID            string
	Username      string
	PreferredName string
	Scopes        []string
}

// Principal strips the user down to the identity that goes into tokens.
func (u *User) Principal() Principal {
	return Principal{
		ID:            u.ID,
		Username:      u.Username,
		PreferredName: u.PreferredName,
		Scopes:        u.Scopes,
	}
}
