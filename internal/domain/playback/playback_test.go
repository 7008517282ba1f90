package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatus_TrackID(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		wantID string
		wantOK bool
	}{
		{name: "track", status: Status{Item: &Item{Type: ItemTrack, ID: "t1"}}, wantID: "t1", wantOK: true},
		{name: "local file", status: Status{Item: &Item{Type: ItemTrack}}},
		{name: "episode", status: Status{Item: &Item{Type: ItemEpisode, ID: "e1"}}},
		{name: "nothing loaded", status: Status{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := tt.status.TrackID()
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestStatus_AtStart(t *testing.T) {
	zero := time.Duration(0)
	later := 3 * time.Second

	assert.True(t, (&Status{Progress: &zero}).AtStart())
	assert.False(t, (&Status{Progress: &later}).AtStart())
	assert.False(t, (&Status{}).AtStart())
}

func TestItemType_String(t *testing.T) {
	assert.Equal(t, "track", ItemTrack.String())
	assert.Equal(t, "episode", ItemEpisode.String())
	assert.Equal(t, "unknown", ItemType(9).String())
}
