package rest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"

	"github.com/osa030/grooves/internal/app/manager"
	"github.com/osa030/grooves/internal/app/player"
	"github.com/osa030/grooves/internal/domain/playlist"
	"github.com/osa030/grooves/internal/infra/spotify"
	"github.com/osa030/grooves/internal/infra/storage"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "unauthorized", err: errors.Wrap(ErrUnauthorized, "x"), want: http.StatusUnauthorized},
		{name: "missing credentials", err: manager.ErrMissingCredentials, want: http.StatusUnauthorized},
		{name: "not premium", err: errors.Wrap(spotify.ErrNotPremium, "x"), want: http.StatusForbidden},
		{name: "not found", err: errors.Wrap(storage.ErrNotFound, "x"), want: http.StatusNotFound},
		{name: "marked bad request", err: errors.Mark(errors.New("x"), ErrBadRequest), want: http.StatusBadRequest},
		{name: "empty playlist", err: playlist.ErrEmptyPlaylist, want: http.StatusBadRequest},
		{name: "invalid element", err: errors.Wrap(player.ErrInvalidElementIndex, "x"), want: http.StatusBadRequest},
		{name: "no player", err: manager.ErrNoPlayer, want: http.StatusConflict},
		{name: "player closed", err: manager.ErrPlayerClosed, want: http.StatusConflict},
		{name: "queue full", err: manager.ErrCommandQueueFull, want: http.StatusTooManyRequests},
		{name: "manager closed", err: manager.ErrManagerClosed, want: http.StatusServiceUnavailable},
		{name: "other", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestWriteError_HidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	writeError(rec, req, errors.New("database password is hunter2"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hunter2")
	assert.Contains(t, rec.Body.String(), "Internal Server Error")
}
