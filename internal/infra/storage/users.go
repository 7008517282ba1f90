package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/osa030/grooves/internal/domain/user"
)

// UpsertUser stores the Spotify account's token, creating the user on first
// login.
func (s *Store) UpsertUser(ctx context.Context, spotifyID string, token *oauth2.Token) (*user.User, error) {
	encoded, err := encodeToken(token)
	if err != nil {
		return nil, err
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (spotify_id, token, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(spotify_id) DO UPDATE SET token = excluded.token
		RETURNING id
	`, spotifyID, encoded, time.Now().Unix()).Scan(&id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert user")
	}

	return &user.User{ID: id, SpotifyID: spotifyID, Token: token}, nil
}

// GetUser returns the user with the given ID.
func (s *Store) GetUser(ctx context.Context, id int64) (*user.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, spotify_id, token FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// UpdateToken replaces a user's stored token, typically after a refresh.
func (s *Store) UpdateToken(ctx context.Context, userID int64, token *oauth2.Token) error {
	encoded, err := encodeToken(token)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET token = ? WHERE id = ?`, encoded, userID)
	if err != nil {
		return errors.Wrap(err, "failed to update token")
	}
	return expectAffected(res)
}

// CreateSession issues a new bearer token for the user.
func (s *Store) CreateSession(ctx context.Context, userID int64) (*user.Session, error) {
	session := &user.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, created_at)
		VALUES (?, ?, ?)
	`, session.Token, session.UserID, session.CreatedAt.Unix())
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session")
	}
	return session, nil
}

// UserBySession resolves a bearer token to its user.
func (s *Store) UserBySession(ctx context.Context, token string) (*user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT users.id, users.spotify_id, users.token
		FROM sessions JOIN users ON sessions.user_id = users.id
		WHERE sessions.token = ?
	`, token)
	return scanUser(row)
}

// DeleteSession revokes a bearer token.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return errors.Wrap(err, "failed to delete session")
	}
	return expectAffected(res)
}

func scanUser(row *sql.Row) (*user.User, error) {
	var (
		u     user.User
		token sql.NullString
	)
	if err := row.Scan(&u.ID, &u.SpotifyID, &token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to scan user")
	}
	if token.Valid && token.String != "" {
		var t oauth2.Token
		if err := json.Unmarshal([]byte(token.String), &t); err != nil {
			return nil, errors.Wrap(err, "failed to decode token")
		}
		u.Token = &t
	}
	return &u, nil
}

func encodeToken(token *oauth2.Token) (sql.NullString, error) {
	if token == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(token)
	if err != nil {
		return sql.NullString{}, errors.Wrap(err, "failed to encode token")
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
