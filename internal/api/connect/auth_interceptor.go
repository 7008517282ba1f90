package connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	"github.com/osa030/grooves/internal/domain/user"
	"github.com/osa030/grooves/internal/infra/storage"
)

// Sessions resolves session tokens to users.
type Sessions interface {
	UserBySession(ctx context.Context, token string) (*user.User, error)
}

type ctxKey int

const userKey ctxKey = iota

// authInterceptor resolves the bearer session token of every call, unary
// and streaming, to a user stored in the context.
type authInterceptor struct {
	sessions Sessions
}

// NewAuthInterceptor creates an interceptor that rejects calls without a
// valid session token.
func NewAuthInterceptor(sessions Sessions) connect.Interceptor {
	return &authInterceptor{sessions: sessions}
}

func (a *authInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		ctx, err := a.authenticate(ctx, req.Header())
		if err != nil {
			return nil, err
		}
		return next(ctx, req)
	}
}

func (a *authInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (a *authInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		ctx, err := a.authenticate(ctx, conn.RequestHeader())
		if err != nil {
			return err
		}
		return next(ctx, conn)
	}
}

func (a *authInterceptor) authenticate(ctx context.Context, header http.Header) (context.Context, error) {
	token, ok := strings.CutPrefix(header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("missing bearer token"))
	}
	u, err := a.sessions.UserBySession(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("unknown session"))
	}
	if err != nil {
		return nil, toConnectError("authenticate", err)
	}
	return context.WithValue(ctx, userKey, u), nil
}

// userFrom returns the user set by the auth interceptor.
func userFrom(ctx context.Context) (*user.User, error) {
	u, ok := ctx.Value(userKey).(*user.User)
	if !ok {
		return nil, connect.NewError(connect.CodeUnauthenticated, nil)
	}
	return u, nil
}
