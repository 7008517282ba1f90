package rest

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/grooves/internal/app/manager"
	"github.com/osa030/grooves/internal/app/player"
	"github.com/osa030/grooves/internal/domain/playlist"
	"github.com/osa030/grooves/internal/infra/spotify"
	"github.com/osa030/grooves/internal/infra/storage"
)

// Errors
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
)

// statusFor maps an error to its HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, manager.ErrMissingCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, spotify.ErrNotPremium):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, playlist.ErrEmptyPlaylist),
		errors.Is(err, playlist.ErrEmptyElement),
		errors.Is(err, player.ErrInvalidElementIndex),
		errors.Is(err, player.ErrMissingPlaylist):
		return http.StatusBadRequest
	case errors.Is(err, manager.ErrNoPlayer),
		errors.Is(err, manager.ErrPlayerClosed):
		return http.StatusConflict
	case errors.Is(err, manager.ErrCommandQueueFull):
		return http.StatusTooManyRequests
	case errors.Is(err, manager.ErrManagerClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as {"error": "..."}. Internal errors are logged and
// their details hidden.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zlog.Error().Msgf("http: %s %s failed: %+v", r.Method, r.URL.Path, err)
		msg = http.StatusText(status)
	} else {
		zlog.Debug().Msgf("http: %s %s rejected: status=%d error=%v", r.Method, r.URL.Path, status, err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Warn().Msgf("http: failed to encode response: %v", err)
	}
}

const maxBodyBytes = 1 << 20

// decodeJSON decodes and validates a request body.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Mark(errors.Wrap(err, "invalid JSON body"), ErrBadRequest)
	}
	if err := s.validate.Struct(v); err != nil {
		return errors.Mark(errors.Wrap(err, "invalid request"), ErrBadRequest)
	}
	return nil
}
