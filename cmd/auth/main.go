// Package main provides a terminal login tool. It runs the Spotify
// authorization flow against a local callback and stores the resulting
// user and session in the server database.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/osa030/grooves/internal/infra/config"
	"github.com/osa030/grooves/internal/infra/spotify"
	"github.com/osa030/grooves/internal/infra/storage"
)

var (
	app        = kingpin.New("grooves-auth", "Create a grooves session from the terminal")
	configPath = app.Flag("config", "Path to server config file").Default("config/server.yaml").String()
	port       = app.Flag("port", "Callback server port").Default("8888").Int()
)

type result struct {
	code string
	err  error
}

func main() {
	_ = godotenv.Load()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	redirectURL := fmt.Sprintf("http://127.0.0.1:%d/callback", *port)
	auth, err := spotify.NewAuth(spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURL:  redirectURL,
	})
	if err != nil {
		log.Fatalf("Failed to create authenticator: %v", err)
	}

	state := uuid.NewString()
	ch := make(chan result, 1)

	// Only the first callback counts; a reload must not block the handler
	report := func(res result) {
		select {
		case ch <- res:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if st := r.FormValue("state"); st != state {
			http.Error(w, "State mismatch", http.StatusForbidden)
			report(result{err: fmt.Errorf("state mismatch: %s", st)})
			return
		}
		if reason := r.FormValue("error"); reason != "" {
			http.Error(w, "Authorization denied", http.StatusForbidden)
			report(result{err: fmt.Errorf("authorization denied: %s", reason)})
			return
		}
		fmt.Fprint(w, completePage)
		report(result{code: r.FormValue("code")})
	})

	server := &http.Server{Addr: fmt.Sprintf("127.0.0.1:%d", *port), Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	fmt.Println("Please visit the following URL to authorize grooves:")
	fmt.Println("")
	fmt.Println(auth.AuthURL(state))
	fmt.Println("")
	fmt.Println("Waiting for authorization...")

	res := <-ch

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server: %v", err)
	}
	if res.err != nil {
		log.Fatalf("Authorization failed: %v", res.err)
	}

	token, err := login(auth, cfg, res.code)
	if err != nil {
		log.Fatalf("Login failed: %v", err)
	}

	fmt.Println("")
	fmt.Println("=== Authorization Successful ===")
	fmt.Println("")
	fmt.Println("Session token:")
	fmt.Println(token)
	fmt.Println("")
	fmt.Println("Use it with groovectl:")
	fmt.Printf("export GROOVES_TOKEN=\"%s\"\n", token)
}

// login exchanges the code and records the user and a new session.
func login(auth *spotify.Auth, cfg *config.Config, code string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	token, err := auth.Exchange(ctx, code)
	if err != nil {
		return "", err
	}
	profile, err := auth.NewClient(ctx, token).CurrentUser(ctx)
	if err != nil {
		return "", err
	}
	if !profile.Premium && !cfg.Spotify.AllowFree {
		return "", fmt.Errorf("%w: %s", spotify.ErrNotPremium, profile.ID)
	}

	store, err := storage.Open(ctx, cfg.Database.Path, storage.Options{BusyTimeout: cfg.BusyTimeout()})
	if err != nil {
		return "", err
	}
	defer store.Close()

	u, err := store.UpsertUser(ctx, profile.ID, token)
	if err != nil {
		return "", err
	}
	session, err := store.CreateSession(ctx, u.ID)
	if err != nil {
		return "", err
	}
	return session.Token, nil
}

const completePage = `<!DOCTYPE html>
<html><head><title>grooves</title></head>
<body><p>Signed in. You can close this window and return to the terminal.</p></body>
</html>
`
