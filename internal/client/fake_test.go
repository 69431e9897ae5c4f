package client_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/groupshare/internal/client"
)

// fakeServer speaks just enough of the groupshare auth protocol: one user,
// a rotating refresh cookie, and an access credential it can expire.
type fakeServer struct {
	mu        sync.Mutex
	seq       int
	access    string
	refresh   string
	refreshes int
	logouts   int
}

func newFake(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()
	f := &fakeServer{}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

// rotate mints the next credential pair. Callers hold mu.
func (f *fakeServer) rotate(w http.ResponseWriter) {
	f.seq++
	f.access = fmt.Sprintf("a%d", f.seq)
	f.refresh = fmt.Sprintf("r%d", f.seq)
	http.SetCookie(w, &http.Cookie{Name: client.DefaultCookieName, Value: f.refresh, Path: "/", HttpOnly: true})
}

func (f *fakeServer) expireAccess() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = "expired-" + f.access
}

func (f *fakeServer) revokeRefresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refresh = ""
}

func (f *fakeServer) stats() (refreshes, logouts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes, f.logouts
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func fail(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code, "message": code})
}

func (f *fakeServer) credentials() map[string]any {
	return map[string]any{
		"accessToken":     f.access,
		"accessExpiresAt": time.Now().Add(15 * time.Minute).UTC(),
		"currentGroup":    map[string]any{"groupId": "g1", "name": "Hikers", "role": "admin"},
	}
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	cookie := ""
	if ck, err := r.Cookie(client.DefaultCookieName); err == nil {
		cookie = ck.Value
	}
	bearerOK := r.Header.Get("Authorization") == "Bearer "+f.access && f.access != ""
	refreshOK := cookie != "" && cookie == f.refresh

	switch r.URL.Path {
	case "/auth/send-login-link":
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})

	case "/auth/verify-magic-link":
		switch {
		case body["token"] == "invite" && strings.TrimSpace(body["name"]) == "":
			writeJSON(w, http.StatusOK, map[string]any{"needsName": true, "email": "new@example.com"})
		case body["token"] == "good" || body["token"] == "invite":
			f.rotate(w)
			resp := f.credentials()
			resp["user"] = map[string]any{"id": "u1", "email": "ann@example.com", "name": "Ann"}
			resp["groups"] = []any{resp["currentGroup"]}
			resp["state"] = "auto_selected"
			resp["outcome"] = "logged_in"
			writeJSON(w, http.StatusOK, resp)
		default:
			fail(w, http.StatusBadRequest, "invalid_token")
		}

	case "/auth/refresh":
		f.refreshes++
		if !refreshOK {
			http.SetCookie(w, &http.Cookie{Name: client.DefaultCookieName, Value: "", Path: "/", MaxAge: -1})
			fail(w, http.StatusUnauthorized, "invalid_refresh")
			return
		}
		f.rotate(w)
		writeJSON(w, http.StatusOK, f.credentials())

	case "/auth/switch-group":
		if !bearerOK {
			fail(w, http.StatusUnauthorized, "unauthenticated")
			return
		}
		if body["groupId"] != "g2" {
			fail(w, http.StatusForbidden, "not_a_member")
			return
		}
		f.rotate(w)
		resp := f.credentials()
		resp["currentGroup"] = map[string]any{"groupId": "g2", "name": "Climbers", "role": "member"}
		writeJSON(w, http.StatusOK, resp)

	case "/auth/me":
		if !bearerOK {
			fail(w, http.StatusUnauthorized, "unauthenticated")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"user":         map[string]any{"id": "u1", "email": "ann@example.com", "name": "Ann"},
			"currentGroup": map[string]any{"groupId": "g1", "name": "Hikers", "role": "admin"},
			"groups":       []any{map[string]any{"groupId": "g1", "name": "Hikers", "role": "admin"}},
		})

	case "/auth/logout":
		f.logouts++
		f.refresh = ""
		http.SetCookie(w, &http.Cookie{Name: client.DefaultCookieName, Value: "", Path: "/", MaxAge: -1})
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})

	default:
		fail(w, http.StatusNotFound, "not_found")
	}
}
