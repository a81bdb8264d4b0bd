// Copyright 2023 the pay2order authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package payauth gates the HTTP surface behind API keys: point of
// sale terminals log in once with their configured key and receive a
// session cookie for subsequent requests.
package payauth

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"github.com/manit/pay2order/internal/atomic/write"
	"github.com/manit/pay2order/internal/httperr"
)

const sessionCookieName = "pay2order"

// LoadSessionStore initializes a cookie-backed session store under
// stateDir. The cookie secret is generated on first use and persisted
// to stateDir/cookies.key so that sessions survive restarts.
func LoadSessionStore(stateDir string) (sessions.Store, error) {
	cookieSecretPath := filepath.Join(stateDir, "cookies.key")
	secret, err := os.ReadFile(cookieSecretPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(cookieSecretPath), 0755); err != nil {
			return nil, err
		}
		secret = securecookie.GenerateRandomKey(32)
		t, err := write.TempFile(cookieSecretPath)
		if err != nil {
			return nil, err
		}
		defer t.Cleanup()
		if _, err := t.Write(secret); err != nil {
			return nil, err
		}
		if err := t.CloseAtomicallyReplace(); err != nil {
			return nil, err
		}
	}

	sessionsPath := filepath.Join(stateDir, "sessions")
	if err := os.MkdirAll(sessionsPath, 0700); err != nil {
		return nil, err
	}
	return sessions.NewFilesystemStore(sessionsPath, secret), nil
}

// LoadAPIKeys reads one API key per line from path, skipping blank
// lines and lines starting with #.
func LoadAPIKeys(path string) (map[string]bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]bool)
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keys[line] = true
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%s contains no API keys", path)
	}
	return keys, nil
}

// A Gate authenticates requests. Terminals POST their API key to the
// login handler and carry the resulting session cookie from then on.
type Gate struct {
	store sessions.Store
	keys  map[string]bool
}

func NewGate(store sessions.Store, keys map[string]bool) *Gate {
	return &Gate{store: store, keys: keys}
}

func (g *Gate) LoginHandler(w http.ResponseWriter, r *http.Request) error {
	if r.Method != "POST" {
		return httperr.Error(http.StatusMethodNotAllowed,
			fmt.Errorf("expected a POST request, got a %s request", r.Method))
	}
	key := r.FormValue("api_key")
	if !g.keys[key] {
		return httperr.Error(http.StatusForbidden, fmt.Errorf("invalid API key"))
	}
	session, _ := g.store.Get(r, sessionCookieName)
	session.Values["authenticated"] = true
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("saving session: %v", err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (g *Gate) SignoutHandler(w http.ResponseWriter, r *http.Request) error {
	session, err := g.store.Get(r, sessionCookieName)
	if err != nil {
		return httperr.Error(http.StatusBadRequest, fmt.Errorf("session not found"))
	}
	session.Options.MaxAge = -1 // deletes the session
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("deleting session: %v", err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (g *Gate) authenticated(r *http.Request) bool {
	session, err := g.store.Get(r, sessionCookieName)
	if err != nil {
		return false
	}
	ok, _ := session.Values["authenticated"].(bool)
	return ok
}

// Require wraps h, rejecting requests without a valid session. As a
// convenience for non-browser clients, a request presenting a valid
// API key in the X-API-Key header passes without a session.
func (g *Gate) Require(h func(http.ResponseWriter, *http.Request) error) func(http.ResponseWriter, *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		if !g.authenticated(r) && !g.keys[r.Header.Get("X-API-Key")] {
			return httperr.Error(http.StatusUnauthorized, fmt.Errorf("not signed in"))
		}
		return h(w, r)
	}
}
