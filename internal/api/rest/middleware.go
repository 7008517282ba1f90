package rest

import (
	"context"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/osa030/grooves/internal/domain/user"
	"github.com/osa030/grooves/internal/infra/storage"
)

type ctxKey int

const (
	userKey ctxKey = iota
	sessionTokenKey
)

// authenticate resolves the bearer token to a user.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, r, errors.Wrap(ErrUnauthorized, "missing bearer token"))
			return
		}

		u, err := s.userBySession(r.Context(), token)
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, u)
		ctx = context.WithValue(ctx, sessionTokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) userBySession(ctx context.Context, token string) (*user.User, error) {
	u, err := s.store.UserBySession(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, errors.Wrap(ErrUnauthorized, "unknown session")
	}
	return u, err
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// currentUser returns the user set by authenticate.
func currentUser(r *http.Request) *user.User {
	u, _ := r.Context().Value(userKey).(*user.User)
	return u
}

func currentSessionToken(r *http.Request) string {
	token, _ := r.Context().Value(sessionTokenKey).(string)
	return token
}
