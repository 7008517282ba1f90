package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/grooves/internal/app/manager"
	"github.com/osa030/grooves/internal/app/player"
)

const (
	wsAuthTimeout  = 10 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// snapshots follows the user's players in the background and delivers
// encoded snapshots. An empty payload means the player stopped.
func (s *Server) snapshots(ctx context.Context, userID int64) (<-chan []byte, <-chan error) {
	events := make(chan []byte)
	errc := make(chan error, 1)

	go func() {
		errc <- manager.Follow(ctx, s.players, userID, func(info *player.PlaybackInfo) error {
			data := []byte{}
			if info != nil {
				b, err := json.Marshal(info)
				if err != nil {
					return errors.Wrap(err, "failed to encode playback info")
				}
				data = b
			}
			select {
			case events <- data:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	return events, errc
}

// playerEvents streams snapshots as server-sent events.
func (s *Server) playerEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.sseTokens.Take(r.URL.Query().Get("token"))
	if !ok {
		writeError(w, r, errors.Wrap(ErrUnauthorized, "invalid or expired stream token"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, errors.New("streaming unsupported"))
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	zlog.Info().Msgf("stream: sse client connected: user_id=%d", userID)
	defer zlog.Info().Msgf("stream: sse client disconnected: user_id=%d", userID)

	events, errc := s.snapshots(ctx, userID)
	ticker := time.NewTicker(s.opts.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case data := <-events:
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case err := <-errc:
			logStreamEnd(userID, err)
			return
		case <-ctx.Done():
			return
		}
	}
}

// playerSocket streams snapshots over a WebSocket. The first text message
// must be a session token.
func (s *Server) playerSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zlog.Debug().Msgf("stream: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(wsAuthTimeout))
	mt, msg, err := conn.ReadMessage()
	if err != nil || mt != websocket.TextMessage {
		closeSocket(conn, websocket.ClosePolicyViolation, "expected session token")
		return
	}
	u, err := s.userBySession(r.Context(), strings.TrimSpace(string(msg)))
	if err != nil {
		closeSocket(conn, websocket.ClosePolicyViolation, "unauthorized")
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Incoming messages are ignored; a read error means the client left
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	zlog.Info().Msgf("stream: websocket client connected: user_id=%d", u.ID)
	defer zlog.Info().Msgf("stream: websocket client disconnected: user_id=%d", u.ID)

	events, errc := s.snapshots(ctx, u.ID)
	ticker := time.NewTicker(s.opts.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case data := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		case err := <-errc:
			logStreamEnd(u.ID, err)
			closeSocket(conn, websocket.CloseGoingAway, "stream ended")
			return
		case <-ctx.Done():
			return
		}
	}
}

func closeSocket(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

func logStreamEnd(userID int64, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	zlog.Warn().Msgf("stream: ended: user_id=%d error=%v", userID, err)
}
