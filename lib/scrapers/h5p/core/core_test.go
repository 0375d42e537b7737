package core

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"h5p-downloader/lib/telemetry"

	"github.com/stretchr/testify/require"
)

const introducePage = `<html><body>
<form action="%s/login/email" method="POST">
	<input type="hidden" name="_token" value="csrf-one">
	<input type="email" name="email">
</form>
</body></html>`

const passwordPage = `<html><body>
<form action="/login/final" method="post">
	<input type="hidden" name="_token" value="csrf-two">
	<input type="hidden" name="remember" value="1">
	<input type="password" name="password">
</form>
</body></html>`

type fakePlatform struct {
	mux *http.ServeMux

	loginPageHits int
	finalPayload  map[string]string
}

func newFakePlatform(t testing.TB) (*fakePlatform, *httptest.Server) {
	p := &fakePlatform{
		mux:          http.NewServeMux(),
		finalPayload: map[string]string{},
	}
	server := httptest.NewServer(p.mux)
	t.Cleanup(server.Close)

	p.mux.HandleFunc("GET /login/introduce", func(w http.ResponseWriter, r *http.Request) {
		p.loginPageHits++
		fmt.Fprintf(w, introducePage, server.URL)
	})
	p.mux.HandleFunc("POST /login/email", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("_token") != "csrf-one" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, passwordPage)
	})
	p.mux.HandleFunc("POST /login/final", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		for key := range r.PostForm {
			p.finalPayload[key] = r.PostForm.Get(key)
		}
		if r.PostForm.Get("password") != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "h5p_session", Value: "session-ok", Path: "/"})
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})
	p.mux.HandleFunc("GET /dashboard", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>welcome</body></html>")
	})
	p.mux.HandleFunc("GET /content", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("h5p_session")
		if err != nil || cookie.Value != "session-ok" {
			http.Redirect(w, r, "/login/introduce", http.StatusFound)
			return
		}
		fmt.Fprint(w, "<html><body>content list</body></html>")
	})

	return p, server
}

func newTestClient(t testing.TB, baseUrl, sessionFile string) *Client {
	client, err := NewClient(context.Background(), ClientOptions{
		BaseUrl:     baseUrl,
		SessionFile: sessionFile,
	})
	require.NoError(t, err)
	return client
}

func TestLoginEmailPassword(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/h5p/core")
	defer cleanup()

	platform, server := newFakePlatform(t)
	client := newTestClient(t, server.URL, "")

	err := client.LoginEmailPassword(context.Background(), "student@example.com", "hunter2")
	require.NoError(t, err)

	// the fresh token and the extra hidden field must both be forwarded
	require.Equal(t, "csrf-two", platform.finalPayload["_token"])
	require.Equal(t, "1", platform.finalPayload["remember"])
	require.Equal(t, "student@example.com", platform.finalPayload["email"])

	require.True(t, client.ProbeSession(context.Background()))
}

func TestLoginBadPassword(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/h5p/core")
	defer cleanup()

	_, server := newFakePlatform(t)
	client := newTestClient(t, server.URL, "")

	err := client.LoginEmailPassword(context.Background(), "student@example.com", "wrong")
	require.ErrorIs(t, err, ErrLoginFailed)
}

func TestLoginMissingToken(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/h5p/core")
	defer cleanup()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /login/introduce", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><form action="/login/email" method="POST"></form></body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL, "")
	err := client.LoginEmailPassword(context.Background(), "student@example.com", "hunter2")
	require.ErrorIs(t, err, ErrNoLoginToken)
}

func TestLoginMissingForm(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/h5p/core")
	defer cleanup()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /login/introduce", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>nothing here</body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL, "")
	err := client.LoginEmailPassword(context.Background(), "student@example.com", "hunter2")
	require.ErrorIs(t, err, ErrNoLoginForm)
}

func TestLoginSSORedirect(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/h5p/core")
	defer cleanup()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /login/introduce", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<form action="/login/email" method="POST">
	<input type="hidden" name="_token" value="csrf-one">
</form>
</body></html>`)
	})
	mux.HandleFunc("POST /login/email", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/sso/acs", http.StatusFound)
	})
	mux.HandleFunc("GET /sso/acs", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>federated identity</body></html>")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL, "")
	err := client.LoginEmailPassword(context.Background(), "student@example.com", "hunter2")
	require.ErrorIs(t, err, ErrSSONotSupported)
}

func TestLoginMissingPasswordField(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/h5p/core")
	defer cleanup()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /login/introduce", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<form action="/login/email" method="POST">
	<input type="hidden" name="_token" value="csrf-one">
</form>
</body></html>`)
	})
	mux.HandleFunc("POST /login/email", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>email not recognized</body></html>")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL, "")
	err := client.LoginEmailPassword(context.Background(), "student@example.com", "hunter2")
	require.ErrorIs(t, err, ErrNoPasswordField)
}

func TestSessionReuseSkipsLogin(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/h5p/core")
	defer cleanup()

	platform, server := newFakePlatform(t)
	sessionFile := filepath.Join(t.TempDir(), "session_cookies.json")

	client := newTestClient(t, server.URL, sessionFile)
	err := client.EnsureAuthenticated(context.Background(), "student@example.com", "hunter2")
	require.NoError(t, err)
	require.Equal(t, 1, platform.loginPageHits)

	// a second client restores the persisted session, probes it and never
	// touches the login flow again
	reused := newTestClient(t, server.URL, sessionFile)
	err = reused.EnsureAuthenticated(context.Background(), "student@example.com", "hunter2")
	require.NoError(t, err)
	require.Equal(t, 1, platform.loginPageHits)
}

func TestRestoreSessionMissingOrCorrupt(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/h5p/core")
	defer cleanup()

	_, server := newFakePlatform(t)
	dir := t.TempDir()

	client := newTestClient(t, server.URL, filepath.Join(dir, "missing.json"))
	require.False(t, client.RestoreSession(context.Background()))

	corruptFile := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corruptFile, []byte("{not json"), 0600))
	client = newTestClient(t, server.URL, corruptFile)
	require.False(t, client.RestoreSession(context.Background()))
}
