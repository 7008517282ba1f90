package rest

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/grooves/internal/app/player"
)

// commandRequest is the body of POST /player. Only play uses the optional
// fields.
type commandRequest struct {
	Type         player.CommandType `mapstructure:"type"`
	PlaylistID   *int64             `mapstructure:"playlist_id"`
	ElementIndex *int               `mapstructure:"element_index"`
	SongIndex    *int               `mapstructure:"song_index"`
}

// decodeCommand decodes a snake_case tagged command object.
func decodeCommand(raw map[string]any) (*commandRequest, error) {
	if _, ok := raw["type"].(string); !ok {
		return nil, errors.Mark(errors.New("command type must be a string"), ErrBadRequest)
	}

	var req commandRequest
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.TextUnmarshallerHookFunc(),
		ErrorUnused: true,
		Result:      &req,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create command decoder")
	}
	if err := dec.Decode(raw); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "invalid command"), ErrBadRequest)
	}
	if req.Type == player.CommandPlay && req.PlaylistID == nil {
		return nil, errors.Mark(errors.New("play requires playlist_id"), ErrBadRequest)
	}
	return &req, nil
}

// command forwards a command to the caller's player, starting one for play.
func (s *Server) command(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		writeError(w, r, errors.Mark(errors.Wrap(err, "invalid JSON body"), ErrBadRequest))
		return
	}

	req, err := decodeCommand(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}

	u := currentUser(r)
	cmd := player.NewCommand(req.Type)
	if req.Type == player.CommandPlay {
		pl, err := s.store.GetPlaylist(r.Context(), *req.PlaylistID, u.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		cmd = player.Play(pl, req.ElementIndex, req.SongIndex)
	}

	if err := s.players.SendCommand(u, cmd); err != nil {
		writeError(w, r, err)
		return
	}

	zlog.Debug().Msgf("player: command sent: user_id=%d command=%s", u.ID, req.Type)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// sseToken issues a single-use token for GET /player.
func (s *Server) sseToken(w http.ResponseWriter, r *http.Request) {
	token := s.sseTokens.Issue(currentUser(r).ID)
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
