// Package trib holds the domain constants, payload types, and username
// rules shared by the front-end and its storage layer.
package trib

import "regexp"

const (
	// MinListUser is the number of early sign-ups MAIN.global_users keeps
	// a durable snapshot of, for list_users.
	MinListUser = 20
	// MaxFollowing caps how many users a single user may follow.
	MaxFollowing = 2000
	// MaxTribLen caps the length, in bytes, of a single trib message.
	MaxTribLen = 140
	// MaxTribFetch caps how many tribs tribs()/home() ever return.
	MaxTribFetch = 100
)

var usernameRE = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,30}$`)

// IsValidUsername reports whether u is an acceptable username: ASCII
// letters, digits, underscore or hyphen, 1-30 characters.
func IsValidUsername(u string) bool {
	return usernameRE.MatchString(u)
}

// Trib is a single posted message, serialised as the tribs list payload.
type Trib struct {
	User    string `json:"user"`
	Message string `json:"message"`
	Time    int64  `json:"time"`  // wall-clock seconds since epoch
	Clock   uint64 `json:"clock"`
}
