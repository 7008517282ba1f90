// Package main provides a command line client for the grooves player service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/grooves/internal/api/connect"
	"github.com/osa030/grooves/internal/app/player"
)

var (
	app    = kingpin.New("groovectl", "grooves player client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").Envar("GROOVES_SERVER").String()
	token  = app.Flag("token", "Session token").Envar("GROOVES_TOKEN").Required().String()

	playlistsCmd = app.Command("playlists", "List your playlists")

	playCmd        = app.Command("play", "Play a playlist")
	playPlaylistID = playCmd.Arg("playlist-id", "Playlist ID").Required().Int64()
	playElement    = playCmd.Flag("element", "Element index to start from").Short('e').IsSetByUser(&playElementSet).Int()
	playElementSet bool

	pauseCmd       = app.Command("pause", "Pause playback")
	resumeCmd      = app.Command("resume", "Resume playback")
	nextSongCmd    = app.Command("next-song", "Skip to the next song")
	prevSongCmd    = app.Command("prev-song", "Skip to the previous song")
	nextElementCmd = app.Command("next-element", "Skip to the next element")
	prevElementCmd = app.Command("prev-element", "Skip to the previous element")
	exitCmd        = app.Command("exit", "Stop the player")

	watchCmd = app.Command("watch", "Print playback updates")
)

func main() {
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := apiconnect.NewPlayerClient(http.DefaultClient, *server, *token)

	var err error
	switch command {
	case playlistsCmd.FullCommand():
		err = listPlaylists(ctx, c)
	case playCmd.FullCommand():
		req := &apiconnect.SendRequest{Type: player.CommandPlay.String(), PlaylistID: playPlaylistID}
		if playElementSet {
			req.ElementIndex = playElement
		}
		err = send(ctx, c, req)
	case pauseCmd.FullCommand():
		err = simple(ctx, c, player.CommandPause)
	case resumeCmd.FullCommand():
		err = simple(ctx, c, player.CommandResume)
	case nextSongCmd.FullCommand():
		err = simple(ctx, c, player.CommandNextSong)
	case prevSongCmd.FullCommand():
		err = simple(ctx, c, player.CommandPrevSong)
	case nextElementCmd.FullCommand():
		err = simple(ctx, c, player.CommandNextElement)
	case prevElementCmd.FullCommand():
		err = simple(ctx, c, player.CommandPrevElement)
	case exitCmd.FullCommand():
		err = simple(ctx, c, player.CommandExit)
	case watchCmd.FullCommand():
		err = watch(ctx, c)
	}
	if err != nil && ctx.Err() == nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func send(ctx context.Context, c *apiconnect.PlayerClient, req *apiconnect.SendRequest) error {
	if err := c.Send(ctx, req); err != nil {
		return err
	}
	fmt.Printf("Sent: %s\n", req.Type)
	return nil
}

func simple(ctx context.Context, c *apiconnect.PlayerClient, t player.CommandType) error {
	return send(ctx, c, &apiconnect.SendRequest{Type: t.String()})
}

func listPlaylists(ctx context.Context, c *apiconnect.PlayerClient) error {
	playlists, err := c.ListPlaylists(ctx)
	if err != nil {
		return err
	}
	if len(playlists) == 0 {
		fmt.Println("No playlists")
		return nil
	}
	for _, p := range playlists {
		fmt.Printf("%4d  %s (%d elements)\n", p.ID, p.Name, len(p.Elements))
	}
	return nil
}

// watch follows the snapshot stream until interrupted.
func watch(ctx context.Context, c *apiconnect.PlayerClient) error {
	fmt.Println("Watching playback. Press Ctrl+C to exit.")
	return c.Watch(ctx, func(info *player.PlaybackInfo) error {
		printSnapshot(info)
		return nil
	})
}

func printSnapshot(info *player.PlaybackInfo) {
	if info == nil {
		fmt.Println("⏹  Player stopped")
		return
	}
	icon := "▶️ "
	if info.Status == player.StatusPaused {
		icon = "⏸ "
	}
	fmt.Printf("%s %s - %s [%s]\n", icon, info.SongName, info.Artists, info.AlbumName)
}
