package rest

import (
	"context"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/grooves/internal/domain/user"
)

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, r, errors.Mark(errors.New("query parameter q is required"), ErrBadRequest))
		return
	}

	u := currentUser(r)
	client, err := s.spotifyClient(r.Context(), u)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := client.Search(r.Context(), query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.persistToken(r.Context(), u, client)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) albumToElement(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	client, err := s.spotifyClient(r.Context(), u)
	if err != nil {
		writeError(w, r, err)
		return
	}

	element, err := client.AlbumElement(r.Context(), chi.URLParam(r, "albumID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.persistToken(r.Context(), u, client)
	writeJSON(w, http.StatusOK, element)
}

func (s *Server) spotifyClient(ctx context.Context, u *user.User) (SpotifyClient, error) {
	if !u.HasCredentials() {
		return nil, errors.Wrap(ErrUnauthorized, "no spotify credentials")
	}
	return s.spotify.Client(ctx, u.Token), nil
}

// persistToken stores the client's token if it was refreshed during the request.
func (s *Server) persistToken(ctx context.Context, u *user.User, client SpotifyClient) {
	token, err := client.Token()
	if err != nil || token == nil {
		return
	}
	if u.Token != nil && u.Token.AccessToken == token.AccessToken {
		return
	}
	if err := s.store.UpdateToken(ctx, u.ID, token); err != nil {
		zlog.Warn().Msgf("spotify: failed to persist refreshed token: user_id=%d error=%v", u.ID, err)
		return
	}
	zlog.Debug().Msgf("spotify: refreshed token persisted: user_id=%d", u.ID)
}
