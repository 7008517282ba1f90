// Package user provides the User and Session domain entities.
package user

import (
	"time"

	"golang.org/x/oauth2"
)

// User is a registered Spotify account.
type User struct {
	ID        int64         // Local user ID
	SpotifyID string        // Spotify user ID
	Token     *oauth2.Token // Spotify credentials (nil if the user must re-authenticate)
}

// HasCredentials reports whether a provider client can be built for the user.
func (u *User) HasCredentials() bool {
	return u.Token != nil && (u.Token.AccessToken != "" || u.Token.RefreshToken != "")
}

// Session is a bearer token issued to a user after login.
type Session struct {
	Token     string
	UserID    int64
	CreatedAt time.Time
}
