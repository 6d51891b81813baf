// Package auth handles the Google OAuth2 flow for the reminder store:
// a cached token under the config dir, refreshed automatically, with a
// localhost redirect flow for first-time authorization.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"
)

const (
	// ClientSecretsFile holds the OAuth client downloaded from the
	// Google console. It lives in the app's config directory.
	ClientSecretsFile = "credentials.json"

	// TokenFile caches the obtained token (access + refresh).
	TokenFile = "token.json"

	// LocalhostAuthPort is where the local server listens to capture
	// the OAuth redirect.
	LocalhostAuthPort = "6789"

	xdgAppName = "bobsync"
)

// ConfigDir returns the app's config directory (~/.config/bobsync).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

// GetTasksService builds an authenticated Google Tasks service,
// running the web authorization flow if no cached token exists.
func GetTasksService(ctx context.Context) (*tasks.Service, error) {
	client, err := GetClient(ctx, []string{tasks.TasksScope})
	if err != nil {
		return nil, fmt.Errorf("getting authenticated client for Tasks API: %w", err)
	}
	srv, err := tasks.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("building Tasks service: %w", err)
	}
	return srv, nil
}

// GetClient returns an *http.Client that refreshes its token as needed.
func GetClient(ctx context.Context, scopes []string) (*http.Client, error) {
	config, err := oauthConfig(scopes)
	if err != nil {
		return nil, err
	}

	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	tokenFile := filepath.Join(dir, TokenFile)
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		log.Info("no cached token, starting web authorization flow", "path", tokenFile)
		tok, err = tokenFromWeb(config)
		if err != nil {
			return nil, fmt.Errorf("getting token from web: %w", err)
		}
		if err := saveToken(tokenFile, tok); err != nil {
			log.Warn("could not cache token", "err", err)
		}
	}
	return config.Client(ctx, tok), nil
}

func oauthConfig(scopes []string) (*oauth2.Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(dir, ClientSecretsFile))
	if err != nil {
		return nil, fmt.Errorf("reading client secrets: %w", err)
	}
	config, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing client secrets: %w", err)
	}

	// The local listener owns the redirect port, whatever the secrets
	// file says.
	if parsed, err := url.Parse(config.RedirectURL); err == nil &&
		(parsed.Hostname() == "localhost" || parsed.Hostname() == "127.0.0.1") {
		parsed.Host = fmt.Sprintf("%s:%s", parsed.Hostname(), LocalhostAuthPort)
		config.RedirectURL = parsed.String()
	} else {
		config.RedirectURL = fmt.Sprintf("http://localhost:%s/oauth2callback", LocalhostAuthPort)
	}
	return config, nil
}

// tokenFromWeb runs the browser authorization flow, capturing the code
// on a short-lived local HTTP server.
func tokenFromWeb(config *oauth2.Config) (*oauth2.Token, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	listener, err := net.Listen("tcp", ":"+LocalhostAuthPort)
	if err != nil {
		return nil, fmt.Errorf("starting listener on port %s: %w", LocalhostAuthPort, err)
	}
	defer listener.Close()

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "Authorization code not found", http.StatusBadRequest)
				errCh <- fmt.Errorf("authorization code not found in redirect URL")
				return
			}
			fmt.Fprint(w, "Authentication successful! You can close this window.")
			codeCh <- code
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("local auth server: %w", err)
		}
	}()

	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Printf("Open the following URL in your browser to authorize bobsync:\n%s\n", authURL)

	select {
	case code := <-codeCh:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		tok, err := config.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("exchanging authorization code: %w", err)
		}
		server.Shutdown(ctx)
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-time.After(5 * time.Minute):
		server.Shutdown(context.Background())
		return nil, fmt.Errorf("authorization timed out")
	}
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decoding token from %s: %w", path, err)
	}
	return tok, nil
}

func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}
