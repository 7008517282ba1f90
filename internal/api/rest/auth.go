package rest

import (
	"net/http"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/grooves/internal/infra/spotify"
)

type loginRequest struct {
	Code string `json:"code" validate:"required"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// login exchanges a Spotify authorization code for a session token.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	token, err := s.spotify.Exchange(ctx, req.Code)
	if err != nil {
		writeError(w, r, errors.Mark(err, ErrUnauthorized))
		return
	}

	profile, err := s.spotify.Client(ctx, token).CurrentUser(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !profile.Premium && !s.opts.AllowFree {
		writeError(w, r, errors.Wrapf(spotify.ErrNotPremium, "user %s", profile.ID))
		return
	}

	u, err := s.store.UpsertUser(ctx, profile.ID, token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	session, err := s.store.CreateSession(ctx, u.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	zlog.Info().Msgf("auth: session created: user_id=%d spotify_id=%s", u.ID, u.SpotifyID)
	writeJSON(w, http.StatusOK, loginResponse{Token: session.Token})
}

// logout revokes the caller's session token.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSession(r.Context(), currentSessionToken(r)); err != nil {
		writeError(w, r, err)
		return
	}
	zlog.Info().Msgf("auth: session deleted: user_id=%d", currentUser(r).ID)
	w.WriteHeader(http.StatusNoContent)
}
