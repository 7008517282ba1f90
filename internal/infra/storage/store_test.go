package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/osa030/grooves/internal/domain/playlist"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "grooves.db")
	store, err := Open(context.Background(), path, Options{BusyTimeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureSchema(ctx))

	rows, err := store.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table'`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	for _, table := range []string{"users", "sessions", "playlists"} {
		assert.True(t, found[table], "missing table %s", table)
	}
}

func TestUsers_UpsertAndSessions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}
	u, err := store.UpsertUser(ctx, "alice", token)
	require.NoError(t, err)
	assert.NotZero(t, u.ID)

	// Second login keeps the ID and replaces the token
	refreshed := &oauth2.Token{AccessToken: "access-2", RefreshToken: "refresh"}
	again, err := store.UpsertUser(ctx, "alice", refreshed)
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)

	got, err := store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.SpotifyID)
	require.NotNil(t, got.Token)
	assert.Equal(t, "access-2", got.Token.AccessToken)
	assert.True(t, got.HasCredentials())

	session, err := store.CreateSession(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)

	byToken, err := store.UserBySession(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, byToken.ID)

	require.NoError(t, store.DeleteSession(ctx, session.Token))
	_, err = store.UserBySession(ctx, session.Token)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(store.DeleteSession(ctx, session.Token), ErrNotFound))
}

func TestUsers_UpdateToken(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	u, err := store.UpsertUser(ctx, "bob", nil)
	require.NoError(t, err)

	got, err := store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Token)
	assert.False(t, got.HasCredentials())

	require.NoError(t, store.UpdateToken(ctx, u.ID, &oauth2.Token{AccessToken: "new"}))
	got, err = store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Token.AccessToken)

	assert.True(t, errors.Is(store.UpdateToken(ctx, 999, &oauth2.Token{}), ErrNotFound))

	_, err = store.GetUser(ctx, 999)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPlaylists_CRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	owner, err := store.UpsertUser(ctx, "owner", nil)
	require.NoError(t, err)
	other, err := store.UpsertUser(ctx, "other", nil)
	require.NoError(t, err)

	elements := []playlist.Element{
		{
			Name:     "Album",
			ImageURL: "http://img/album",
			Artists:  "Band",
			Songs:    []playlist.Song{{Name: "One", SpotifyID: "t1", Artists: "Band"}},
		},
	}

	created, err := store.CreatePlaylist(ctx, owner.ID, "Mix", elements)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	got, err := store.GetPlaylist(ctx, created.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	// Other users cannot see or modify the playlist
	_, err = store.GetPlaylist(ctx, created.ID, other.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = store.UpdatePlaylist(ctx, created.ID, other.ID, "Stolen", nil)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(store.DeletePlaylist(ctx, created.ID, other.ID), ErrNotFound))

	updated, err := store.UpdatePlaylist(ctx, created.ID, owner.ID, "Renamed", nil)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Empty(t, updated.Elements)

	list, err := store.ListPlaylists(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Renamed", list[0].Name)
	assert.NotNil(t, list[0].Elements)

	empty, err := store.ListPlaylists(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.DeletePlaylist(ctx, created.ID, owner.ID))
	_, err = store.GetPlaylist(ctx, created.ID, owner.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}
