// Package spotify provides a client for the Spotify API.
package spotify

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/osa030/grooves/internal/domain/playback"
	"github.com/osa030/grooves/internal/domain/playlist"
)

// ErrNotPremium is returned when the account cannot control playback.
var ErrNotPremium = errors.New("spotify premium subscription is required")

// Scopes requested during authorization.
var Scopes = []string{
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
	spotifyauth.ScopePlaylistReadPrivate,
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Auth performs the OAuth flow and builds per-user clients.
type Auth struct {
	auth *spotifyauth.Authenticator
}

// NewAuth creates a new authenticator.
func NewAuth(cfg Config) (*Auth, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("spotify credentials are required")
	}

	opts := []spotifyauth.AuthenticatorOption{
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(Scopes...),
	}
	if cfg.RedirectURL != "" {
		opts = append(opts, spotifyauth.WithRedirectURL(cfg.RedirectURL))
	}

	return &Auth{auth: spotifyauth.New(opts...)}, nil
}

// AuthURL returns the URL the user visits to grant access.
func (a *Auth) AuthURL(state string) string {
	return a.auth.AuthURL(state)
}

// Exchange trades an authorization code for a token.
func (a *Auth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := a.auth.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "failed to exchange authorization code")
	}
	return token, nil
}

// NewClient creates a client for token. ctx bounds token refreshes.
func (a *Auth) NewClient(ctx context.Context, token *oauth2.Token) *Client {
	return &Client{client: spotify.New(a.auth.Client(ctx, token))}
}

// Client is a Spotify API client bound to one user.
type Client struct {
	client *spotify.Client
}

// Profile is the authorized Spotify account.
type Profile struct {
	ID          string
	DisplayName string
	Premium     bool
}

// SearchItem is a track or album search hit.
type SearchItem struct {
	Name      string `json:"name"`
	SpotifyID string `json:"spotify_id"`
	ImageURL  string `json:"image_url"`
}

// SearchResult holds the tracks and albums matching a query.
type SearchResult struct {
	Songs  []SearchItem `json:"songs"`
	Albums []SearchItem `json:"albums"`
}

// CurrentUser returns the authorized account.
func (c *Client) CurrentUser(ctx context.Context) (*Profile, error) {
	u, err := c.client.CurrentUser(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get current user")
	}
	return &Profile{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Premium:     u.Product == "premium",
	}, nil
}

// Token returns the current, possibly refreshed, token.
func (c *Client) Token() (*oauth2.Token, error) {
	return c.client.Token()
}

// Search searches for tracks and albums.
func (c *Client) Search(ctx context.Context, query string) (*SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("search query is required")
	}

	r, err := c.client.Search(ctx, query, spotify.SearchTypeTrack|spotify.SearchTypeAlbum)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search")
	}

	result := &SearchResult{
		Songs:  make([]SearchItem, 0),
		Albums: make([]SearchItem, 0),
	}
	if r.Tracks != nil {
		for _, t := range r.Tracks.Tracks {
			result.Songs = append(result.Songs, SearchItem{
				Name:      t.Name,
				SpotifyID: string(t.ID),
				ImageURL:  minImageURL(t.Album.Images),
			})
		}
	}
	if r.Albums != nil {
		for _, a := range r.Albums.Albums {
			result.Albums = append(result.Albums, SearchItem{
				Name:      a.Name,
				SpotifyID: string(a.ID),
				ImageURL:  minImageURL(a.Images),
			})
		}
	}
	return result, nil
}

// AlbumElement builds a playlist element from an album.
// albumID can be a Spotify ID, URL, or URI.
func (c *Client) AlbumElement(ctx context.Context, albumID string) (*playlist.Element, error) {
	id := extractAlbumID(albumID)
	if id == "" {
		return nil, errors.New("album ID is required")
	}

	album, err := c.client.GetAlbum(ctx, spotify.ID(id))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get album")
	}

	imageURL := maxImageURL(album.Images)
	names := make([]string, len(album.Artists))
	for i, a := range album.Artists {
		names[i] = a.Name
	}
	artists := strings.Join(names, ", ")

	songs := make([]playlist.Song, 0, int(album.Tracks.Total))
	for {
		for _, t := range album.Tracks.Tracks {
			songs = append(songs, playlist.Song{
				Name:      t.Name,
				ImageURL:  imageURL,
				Artists:   artists,
				SpotifyID: string(t.ID),
			})
		}
		err := c.client.NextPage(ctx, &album.Tracks)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to get album tracks")
		}
	}

	return &playlist.Element{
		Name:     album.Name,
		ImageURL: imageURL,
		Artists:  artists,
		Songs:    songs,
	}, nil
}

// CurrentPlayback returns the remote playback status, or nil if no device
// is active.
func (c *Client) CurrentPlayback(ctx context.Context) (*playback.Status, error) {
	state, err := c.client.PlayerState(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get player state")
	}
	if state == nil || (state.Device.ID == "" && state.Item == nil) {
		return nil, nil
	}

	progress := time.Duration(int(state.Progress)) * time.Millisecond
	status := &playback.Status{
		Playing:  state.Playing,
		Progress: &progress,
		DeviceID: string(state.Device.ID),
	}
	if state.Item != nil {
		status.Item = convertItem(state.Item)
	}
	return status, nil
}

// StartPlayback plays the given tracks in order on deviceID, or on the
// active device if deviceID is nil.
func (c *Client) StartPlayback(ctx context.Context, trackIDs []string, deviceID *string) error {
	uris := make([]spotify.URI, len(trackIDs))
	for i, id := range trackIDs {
		uris[i] = spotify.URI("spotify:track:" + extractTrackID(id))
	}

	opt := &spotify.PlayOptions{URIs: uris}
	if deviceID != nil {
		id := spotify.ID(*deviceID)
		opt.DeviceID = &id
	}
	if err := c.client.PlayOpt(ctx, opt); err != nil {
		return errors.Wrap(err, "failed to start playback")
	}
	return nil
}

// Pause pauses the active device.
func (c *Client) Pause(ctx context.Context) error {
	return errors.Wrap(c.client.Pause(ctx), "failed to pause")
}

// Resume resumes the active device.
func (c *Client) Resume(ctx context.Context) error {
	return errors.Wrap(c.client.Play(ctx), "failed to resume")
}

// SkipNext skips to the next track.
func (c *Client) SkipNext(ctx context.Context) error {
	return errors.Wrap(c.client.Next(ctx), "failed to skip to next")
}

// SkipPrevious skips to the previous track.
func (c *Client) SkipPrevious(ctx context.Context) error {
	return errors.Wrap(c.client.Previous(ctx), "failed to skip to previous")
}

// DisableRepeat turns repeat off.
func (c *Client) DisableRepeat(ctx context.Context) error {
	return errors.Wrap(c.client.Repeat(ctx, "off"), "failed to disable repeat")
}

// DisableShuffle turns shuffle off.
func (c *Client) DisableShuffle(ctx context.Context) error {
	return errors.Wrap(c.client.Shuffle(ctx, false), "failed to disable shuffle")
}

// convertItem converts the playing item to a domain item.
// Episodes are reported with an episode URI.
func convertItem(t *spotify.FullTrack) *playback.Item {
	item := &playback.Item{
		Type: playback.ItemTrack,
		ID:   string(t.ID),
		Name: t.Name,
	}
	if strings.HasPrefix(string(t.URI), "spotify:episode:") {
		item.Type = playback.ItemEpisode
	}
	return item
}

// minImageURL returns the URL of the smallest image.
func minImageURL(images []spotify.Image) string {
	url := ""
	best := -1
	for _, img := range images {
		h := int(img.Height)
		if best < 0 || h < best {
			best = h
			url = img.URL
		}
	}
	return url
}

// maxImageURL returns the URL of the largest image.
func maxImageURL(images []spotify.Image) string {
	url := ""
	best := -1
	for _, img := range images {
		h := int(img.Height)
		if h > best {
			best = h
			url = img.URL
		}
	}
	return url
}

// extractAlbumID extracts the album ID from a Spotify album URL or URI.
func extractAlbumID(input string) string {
	return extractID(input, "album")
}

// extractTrackID extracts the track ID from a Spotify track URL or URI.
func extractTrackID(input string) string {
	return extractID(input, "track")
}

func extractID(input, kind string) string {
	input = strings.TrimSpace(input)
	// Handle Spotify URI format: spotify:<kind>:ID
	if prefix := "spotify:" + kind + ":"; strings.HasPrefix(input, prefix) {
		return strings.TrimPrefix(input, prefix)
	}

	// Handle URL format: https://open.spotify.com/<kind>/ID or https://open.spotify.com/intl-XX/<kind>/ID
	sep := "/" + kind + "/"
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, sep) {
		parts := strings.Split(input, sep)
		if len(parts) >= 2 {
			// Remove query parameters and trailing slashes
			id := strings.Split(parts[len(parts)-1], "?")[0]
			id = strings.TrimRight(id, "/")
			return id
		}
	}

	// Assume it's already an ID
	return input
}
