// Package rest provides the HTTP+JSON API, including the playback snapshot
// streams.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/osa030/grooves/internal/app/manager"
	"github.com/osa030/grooves/internal/app/player"
	"github.com/osa030/grooves/internal/domain/playlist"
	"github.com/osa030/grooves/internal/domain/user"
	"github.com/osa030/grooves/internal/infra/spotify"
)

// Store persists users, sessions and playlists.
type Store interface {
	UpsertUser(ctx context.Context, spotifyID string, token *oauth2.Token) (*user.User, error)
	UpdateToken(ctx context.Context, userID int64, token *oauth2.Token) error
	CreateSession(ctx context.Context, userID int64) (*user.Session, error)
	UserBySession(ctx context.Context, token string) (*user.User, error)
	DeleteSession(ctx context.Context, token string) error

	ListPlaylists(ctx context.Context, ownerID int64) ([]playlist.Playlist, error)
	GetPlaylist(ctx context.Context, id, ownerID int64) (*playlist.Playlist, error)
	CreatePlaylist(ctx context.Context, ownerID int64, name string, elements []playlist.Element) (*playlist.Playlist, error)
	UpdatePlaylist(ctx context.Context, id, ownerID int64, name string, elements []playlist.Element) (*playlist.Playlist, error)
	DeletePlaylist(ctx context.Context, id, ownerID int64) error
}

// Players routes commands to per-user players.
type Players interface {
	SendCommand(u *user.User, cmd player.Command) error
	AwaitPlayer(ctx context.Context, userID int64) (*manager.Connection, error)
}

// SpotifyClient is the per-user Spotify API used by the handlers.
type SpotifyClient interface {
	CurrentUser(ctx context.Context) (*spotify.Profile, error)
	Search(ctx context.Context, query string) (*spotify.SearchResult, error)
	AlbumElement(ctx context.Context, albumID string) (*playlist.Element, error)
	Token() (*oauth2.Token, error)
}

// Spotify performs the OAuth code exchange and builds per-user clients.
type Spotify interface {
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Client(ctx context.Context, token *oauth2.Token) SpotifyClient
}

// SpotifyAuth adapts *spotify.Auth to Spotify.
func SpotifyAuth(auth *spotify.Auth) Spotify {
	return spotifyAuth{auth: auth}
}

type spotifyAuth struct {
	auth *spotify.Auth
}

func (a spotifyAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return a.auth.Exchange(ctx, code)
}

func (a spotifyAuth) Client(ctx context.Context, token *oauth2.Token) SpotifyClient {
	return a.auth.NewClient(ctx, token)
}

// Options holds API configuration.
type Options struct {
	SSETokenTTL time.Duration // Lifetime of an unused stream token
	KeepAlive   time.Duration // Interval between stream keep-alives
	AllowFree   bool          // Accept Spotify accounts without Premium
}

// Server serves the HTTP API.
type Server struct {
	store     Store
	players   Players
	spotify   Spotify
	opts      Options
	sseTokens *tokenCache
	validate  *validator.Validate
	upgrader  websocket.Upgrader
}

// New creates a new API server.
func New(store Store, players Players, sp Spotify, opts Options) *Server {
	if opts.SSETokenTTL <= 0 {
		opts.SSETokenTTL = time.Minute
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 15 * time.Second
	}
	return &Server{
		store:     store,
		players:   players,
		spotify:   sp,
		opts:      opts,
		sseTokens: newTokenCache(opts.SSETokenTTL),
		validate:  validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Authentication happens on the first message
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/auth", func(r chi.Router) {
		r.With(jsonCtx).Post("/", s.login)
		r.With(s.authenticate).Delete("/", s.logout)
	})

	r.Route("/playlists", func(r chi.Router) {
		r.Use(s.authenticate, jsonCtx)
		r.Get("/", s.listPlaylists)
		r.Post("/", s.createPlaylist)
		r.Route("/{playlistID}", func(r chi.Router) {
			r.Get("/", s.getPlaylist)
			r.Put("/", s.updatePlaylist)
			r.Delete("/", s.deletePlaylist)
		})
	})

	r.Route("/spotify", func(r chi.Router) {
		r.Use(s.authenticate, jsonCtx)
		r.Get("/search", s.search)
		r.Get("/album_to_element/{albumID}", s.albumToElement)
	})

	r.Route("/player", func(r chi.Router) {
		// Stream endpoints authenticate with a one-shot token or first message
		r.Get("/", s.playerEvents)
		r.Get("/ws", s.playerSocket)
		r.Group(func(r chi.Router) {
			r.Use(s.authenticate, jsonCtx)
			r.Post("/", s.command)
			r.Get("/sse_token", s.sseToken)
		})
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			zlog.Debug().Msgf("http: %s %s: status=%d bytes=%d duration=%v request_id=%s",
				r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(), time.Since(start), middleware.GetReqID(r.Context()))
		}()
		next.ServeHTTP(ww, r)
	})
}

func jsonCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
