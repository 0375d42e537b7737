package core

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
)

type sessionCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SaveSession persists the cookie jar so the next run can skip the login
// flow. Failure to persist is advisory, the current run already holds a
// live session.
func (c *Client) SaveSession(ctx context.Context) {
	if c.sessionFile == "" {
		return
	}

	cookies := c.jar.Cookies(c.BaseUrl)
	stored := make([]sessionCookie, 0, len(cookies))
	for _, cookie := range cookies {
		stored = append(stored, sessionCookie{
			Name:  cookie.Name,
			Value: cookie.Value,
		})
	}

	contents, err := json.Marshal(stored)
	if err != nil {
		slog.WarnContext(ctx, "failed to serialize session", "err", err)
		return
	}
	err = os.WriteFile(c.sessionFile, contents, 0600)
	if err != nil {
		slog.WarnContext(ctx, "failed to save session", "file", c.sessionFile, "err", err)
		return
	}
	slog.InfoContext(ctx, "session saved", "file", c.sessionFile)
}

// RestoreSession loads a previously persisted session into the cookie jar.
// A missing or corrupt store is not an error, it just means a fresh login.
func (c *Client) RestoreSession(ctx context.Context) bool {
	if c.sessionFile == "" {
		return false
	}

	contents, err := os.ReadFile(c.sessionFile)
	if os.IsNotExist(err) {
		slog.DebugContext(ctx, "no session store found", "file", c.sessionFile)
		return false
	}
	if err != nil {
		slog.WarnContext(ctx, "failed to read session store", "file", c.sessionFile, "err", err)
		return false
	}

	var stored []sessionCookie
	err = json.Unmarshal(contents, &stored)
	if err != nil {
		slog.WarnContext(ctx, "session store is corrupt", "file", c.sessionFile, "err", err)
		return false
	}
	if len(stored) == 0 {
		return false
	}

	cookies := make([]*http.Cookie, 0, len(stored))
	for _, cookie := range stored {
		cookies = append(cookies, &http.Cookie{
			Name:  cookie.Name,
			Value: cookie.Value,
		})
	}
	c.jar.SetCookies(c.BaseUrl, cookies)

	slog.InfoContext(ctx, "session restored", "file", c.sessionFile)
	return true
}
