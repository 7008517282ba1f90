package rest

import (
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"

	"github.com/osa030/grooves/internal/domain/playlist"
)

type playlistRequest struct {
	Name     string             `json:"name" validate:"required,max=200"`
	Elements []playlist.Element `json:"elements" validate:"dive"`
}

func (s *Server) listPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := s.store.ListPlaylists(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

func (s *Server) createPlaylist(w http.ResponseWriter, r *http.Request) {
	var req playlistRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := s.store.CreatePlaylist(r.Context(), currentUser(r).ID, req.Name, req.Elements)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) getPlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := playlistID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	p, err := s.store.GetPlaylist(r.Context(), id, currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) updatePlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := playlistID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req playlistRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := s.store.UpdatePlaylist(r.Context(), id, currentUser(r).ID, req.Name, req.Elements)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deletePlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := playlistID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.store.DeletePlaylist(r.Context(), id, currentUser(r).ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func playlistID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "playlistID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.Mark(errors.Newf("invalid playlist id %q", raw), ErrBadRequest)
	}
	return id, nil
}
