package msauth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// loginPage is served to the browser after a successful sign-in.
const loginPage = `<html>
  <body>
    <h1>Authentication Successful</h1>
    <p>You can close this window and return to your AI assistant.</p>
  </body>
</html>`

// Login runs the interactive authorization-code flow: it starts a loopback
// callback server at the configured redirect URI, opens the system browser
// at the Entra ID authorization URL and blocks until the user completes or
// cancels the sign-in, or ctx expires. On success the token cache is written
// atomically.
func (m *Manager) Login(ctx context.Context) error {
	redirect, err := url.Parse(m.oauth.RedirectURL)
	if err != nil {
		return fmt.Errorf("invalid redirect URI %q: %w", m.oauth.RedirectURL, err)
	}

	state := uuid.NewString()

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	callbackPath := redirect.Path
	if callbackPath == "" {
		callbackPath = "/"
	}
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if errCode := q.Get("error"); errCode != "" {
			http.Error(w, "Authentication failed. You can close this window.", http.StatusBadRequest)
			errCh <- fmt.Errorf("%w: %s: %s", ErrAuthRequired, errCode, q.Get("error_description"))
			return
		}
		if q.Get("state") != state {
			http.Error(w, "Invalid state. You can close this window.", http.StatusBadRequest)
			errCh <- fmt.Errorf("%w: authorization response state mismatch", ErrAuthRequired)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "Missing authorization code.", http.StatusBadRequest)
			errCh <- fmt.Errorf("%w: no authorization code received", ErrAuthRequired)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, loginPage)
		codeCh <- code
	})

	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return fmt.Errorf("failed to listen on %s for the OAuth callback: %w", redirect.Host, err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if serveErr := srv.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := m.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
	fmt.Println("Opening your browser for Microsoft sign-in.")
	fmt.Println("If it does not open automatically, visit:")
	fmt.Println("  " + authURL)
	openBrowser(authURL)

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: sign-in not completed: %v", ErrAuthRequired, ctx.Err())
	}

	tok, err := m.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("%w: code exchange failed: %v", ErrAuthRequired, err)
	}

	if err := m.saveToken(tok); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	return nil
}

// openBrowser launches the system browser at the given URL. Failures are
// silent; the URL is always printed for manual use.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
}
