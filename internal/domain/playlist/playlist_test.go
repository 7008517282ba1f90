package playlist

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestPlaylist_Validate(t *testing.T) {
	tests := []struct {
		name     string
		elements []Element
		wantErr  error
	}{
		{
			name:     "no elements",
			elements: nil,
			wantErr:  ErrEmptyPlaylist,
		},
		{
			name: "element without songs",
			elements: []Element{
				{Name: "A", Songs: []Song{{SpotifyID: "a1"}}},
				{Name: "B"},
			},
			wantErr: ErrEmptyElement,
		},
		{
			name: "valid",
			elements: []Element{
				{Name: "A", Songs: []Song{{SpotifyID: "a1"}, {SpotifyID: "a2"}}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Playlist{ID: 1, Elements: tt.elements}
			err := p.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestElement_SongIDs(t *testing.T) {
	tests := []struct {
		name     string
		songs    []Song
		expected []string
	}{
		{
			name:     "empty element",
			songs:    []Song{},
			expected: []string{},
		},
		{
			name:     "keeps order",
			songs:    []Song{{SpotifyID: "s3"}, {SpotifyID: "s1"}, {SpotifyID: "s2"}},
			expected: []string{"s3", "s1", "s2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Element{Songs: tt.songs}
			assert.Equal(t, tt.expected, e.SongIDs())
		})
	}
}

func TestElement_IndexOf(t *testing.T) {
	e := &Element{Songs: []Song{{SpotifyID: "a"}, {SpotifyID: "b"}, {SpotifyID: "c"}}}

	assert.Equal(t, 0, e.IndexOf("a"))
	assert.Equal(t, 2, e.IndexOf("c"))
	assert.Equal(t, -1, e.IndexOf("missing"))
}
