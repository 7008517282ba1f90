package storage

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/osa030/grooves/internal/domain/playlist"
)

// ListPlaylists returns the playlists owned by ownerID.
func (s *Store) ListPlaylists(ctx context.Context, ownerID int64) ([]playlist.Playlist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, owner_id, elements
		FROM playlists
		WHERE owner_id = ?
		ORDER BY id
	`, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list playlists")
	}
	defer rows.Close()

	playlists := make([]playlist.Playlist, 0)
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to list playlists")
	}
	return playlists, nil
}

// GetPlaylist returns a playlist owned by ownerID.
func (s *Store) GetPlaylist(ctx context.Context, id, ownerID int64) (*playlist.Playlist, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_id, elements
		FROM playlists
		WHERE id = ? AND owner_id = ?
	`, id, ownerID)
	return scanPlaylist(row)
}

// CreatePlaylist stores a new playlist for ownerID.
func (s *Store) CreatePlaylist(ctx context.Context, ownerID int64, name string, elements []playlist.Element) (*playlist.Playlist, error) {
	encoded, err := encodeElements(elements)
	if err != nil {
		return nil, err
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO playlists (name, owner_id, elements)
		VALUES (?, ?, ?)
		RETURNING id
	`, name, ownerID, encoded).Scan(&id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create playlist")
	}

	return &playlist.Playlist{ID: id, Name: name, OwnerID: ownerID, Elements: nonNil(elements)}, nil
}

// UpdatePlaylist replaces the name and elements of a playlist owned by ownerID.
func (s *Store) UpdatePlaylist(ctx context.Context, id, ownerID int64, name string, elements []playlist.Element) (*playlist.Playlist, error) {
	encoded, err := encodeElements(elements)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE playlists SET name = ?, elements = ?
		WHERE id = ? AND owner_id = ?
	`, name, encoded, id, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update playlist")
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}

	return &playlist.Playlist{ID: id, Name: name, OwnerID: ownerID, Elements: nonNil(elements)}, nil
}

// DeletePlaylist deletes a playlist owned by ownerID.
func (s *Store) DeletePlaylist(ctx context.Context, id, ownerID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM playlists WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return errors.Wrap(err, "failed to delete playlist")
	}
	return expectAffected(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlaylist(row scanner) (*playlist.Playlist, error) {
	var (
		p        playlist.Playlist
		elements string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.OwnerID, &elements); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to scan playlist")
	}
	if err := json.Unmarshal([]byte(elements), &p.Elements); err != nil {
		return nil, errors.Wrapf(err, "failed to decode elements of playlist %d", p.ID)
	}
	p.Elements = nonNil(p.Elements)
	return &p, nil
}

func encodeElements(elements []playlist.Element) (string, error) {
	b, err := json.Marshal(nonNil(elements))
	if err != nil {
		return "", errors.Wrap(err, "failed to encode elements")
	}
	return string(b), nil
}

func nonNil(elements []playlist.Element) []playlist.Element {
	if elements == nil {
		return []playlist.Element{}
	}
	return elements
}
