// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/oauth2"

	apiconnect "github.com/osa030/grooves/internal/api/connect"
	"github.com/osa030/grooves/internal/api/rest"
	"github.com/osa030/grooves/internal/app/manager"
	"github.com/osa030/grooves/internal/app/player"
	"github.com/osa030/grooves/internal/infra/config"
	"github.com/osa030/grooves/internal/infra/logger"
	"github.com/osa030/grooves/internal/infra/spotify"
	"github.com/osa030/grooves/internal/infra/storage"
)

var (
	app        = kingpin.New("grooves-server", "grooves playback server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	jsonLog    = app.Flag("json-log", "Write JSON log lines to stdout").Bool()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
		JSON:   *jsonLog,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closer.Close()

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %+v", err)
		closer.Close()
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	store, err := storage.Open(ctx, cfg.Database.Path, storage.Options{BusyTimeout: cfg.BusyTimeout()})
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			zlog.Error().Msgf("Failed to close database: %v", err)
		}
	}()
	zlog.Info().Msgf("Database opened: path=%s", cfg.Database.Path)

	auth, err := spotify.NewAuth(spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURL:  cfg.RedirectURL(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create Spotify authenticator")
	}

	factory := manager.ProviderFactoryFunc(func(ctx context.Context, token *oauth2.Token) (player.Provider, error) {
		return auth.NewClient(ctx, token), nil
	})
	players := manager.New(factory, manager.Config{
		Player: player.Config{
			PollInterval: cfg.PollInterval(),
			MaxFailures:  cfg.Player.MaxFailures,
		},
		CommandBuffer: cfg.Player.CommandBuffer,
	})

	api := rest.New(store, players, rest.SpotifyAuth(auth), rest.Options{
		SSETokenTTL: cfg.SSETokenTTL(),
		AllowFree:   cfg.Spotify.AllowFree,
	})

	playerService := apiconnect.NewPlayerService(store, players)
	playerPath, playerHandler := apiconnect.NewPlayerServiceHandler(
		playerService,
		connect.WithInterceptors(apiconnect.NewAuthInterceptor(store)),
	)

	mux := http.NewServeMux()
	mux.Handle(playerPath, playerHandler)
	mux.Handle("/", api.Handler())

	// h2c lets streaming clients multiplex over one cleartext connection
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s redirect_url=%s", cfg.Server.Addr, cfg.RedirectURL())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		zlog.Info().Msgf("Received shutdown signal: %s", sig)
	case err := <-serverErrCh:
		runErr = errors.Wrap(err, "server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stop players first so open streams end before the listener drains
	players.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")
	return runErr
}
