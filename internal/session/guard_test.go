package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitetrack/internal/config"
	"sitetrack/internal/session"
	"sitetrack/internal/store"
)

type recordedEvents struct {
	mu     sync.Mutex
	events []session.Event
}

func (r *recordedEvents) listener(ev session.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordedEvents) all() []session.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]session.Event(nil), r.events...)
}

func grantBody(userID, email string) map[string]any {
	return map[string]any{
		"access_token":  "access-1",
		"refresh_token": "refresh-1",
		"expires_in":    3600,
		"user":          map[string]string{"id": userID, "email": email},
	}
}

func authServer(t *testing.T, handler http.HandlerFunc) config.Config {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return config.Config{StoreURL: srv.URL, StoreKey: "anon", RequestTimeout: 5 * time.Second}
}

func TestSignInHappyPath(t *testing.T) {
	cfg := authServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/token", r.URL.Path)
		require.Equal(t, "password", r.URL.Query().Get("grant_type"))
		json.NewEncoder(w).Encode(grantBody("u1", "chef@chantier.fr"))
	})

	g := session.New(cfg)
	var rec recordedEvents
	g.OnChange(rec.listener)

	require.Equal(t, session.SignedOut, g.State())
	require.NoError(t, g.SignIn(context.Background(), "chef@chantier.fr", "secret123"))
	assert.Equal(t, session.SignedIn, g.State())

	ident, err := g.Identity()
	require.NoError(t, err)
	assert.Equal(t, "u1", ident.UserID)
	assert.Equal(t, "chef@chantier.fr", ident.Email)

	token, err := g.AccessToken()
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, session.EventSignedIn, events[0].Type)
	assert.Equal(t, "u1", events[0].Identity.UserID)
}

func TestSignInRejectedReturnsToSignedOut(t *testing.T) {
	cfg := authServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
	})

	g := session.New(cfg)
	err := g.SignIn(context.Background(), "chef@chantier.fr", "wrong")
	assert.ErrorIs(t, err, session.ErrInvalidCredentials)
	assert.Equal(t, session.SignedOut, g.State())

	_, err = g.AccessToken()
	assert.True(t, store.IsUnauthenticated(err))
}

func TestSignUpShortPasswordNeverReachesNetwork(t *testing.T) {
	var calls atomic.Int64
	cfg := authServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	g := session.New(cfg)
	err := g.SignUp(context.Background(), "new@chantier.fr", "12345")
	assert.ErrorIs(t, err, session.ErrPasswordTooShort)
	assert.Zero(t, calls.Load())
	assert.Equal(t, session.SignedOut, g.State())
}

func TestSignUpSignsInImmediately(t *testing.T) {
	cfg := authServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/signup", r.URL.Path)
		json.NewEncoder(w).Encode(grantBody("u2", "new@chantier.fr"))
	})

	g := session.New(cfg)
	require.NoError(t, g.SignUp(context.Background(), "new@chantier.fr", "123456"))
	assert.Equal(t, session.SignedIn, g.State())
}

func TestSignOutNotifiesAndClears(t *testing.T) {
	cfg := authServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/v1/logout" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		json.NewEncoder(w).Encode(grantBody("u1", "chef@chantier.fr"))
	})

	g := session.New(cfg)
	require.NoError(t, g.SignIn(context.Background(), "chef@chantier.fr", "secret123"))

	var rec recordedEvents
	g.OnChange(rec.listener)
	g.SignOut()

	assert.Equal(t, session.SignedOut, g.State())
	_, err := g.Identity()
	assert.True(t, store.IsUnauthenticated(err))

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, session.EventSignedOut, events[0].Type)

	// Signing out twice stays quiet: there is no transition to announce.
	g.SignOut()
	assert.Len(t, rec.all(), 1)
}

func TestRefreshRotatesToken(t *testing.T) {
	var grants atomic.Int64
	cfg := authServer(t, func(w http.ResponseWriter, r *http.Request) {
		n := grants.Add(1)
		body := grantBody("u1", "chef@chantier.fr")
		if n > 1 {
			require.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
			body["access_token"] = "access-2"
		}
		json.NewEncoder(w).Encode(body)
	})

	g := session.New(cfg)
	require.NoError(t, g.SignIn(context.Background(), "chef@chantier.fr", "secret123"))
	require.NoError(t, g.Refresh(context.Background()))

	token, err := g.AccessToken()
	require.NoError(t, err)
	assert.Equal(t, "access-2", token)
}

func TestRejectedRefreshSignsOut(t *testing.T) {
	var grants atomic.Int64
	cfg := authServer(t, func(w http.ResponseWriter, r *http.Request) {
		if grants.Add(1) == 1 {
			json.NewEncoder(w).Encode(grantBody("u1", "chef@chantier.fr"))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
	})

	g := session.New(cfg)
	require.NoError(t, g.SignIn(context.Background(), "chef@chantier.fr", "secret123"))

	var rec recordedEvents
	g.OnChange(rec.listener)

	err := g.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, session.SignedOut, g.State())

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, session.EventSignedOut, events[0].Type)
}

func TestSignOutDuringRefreshStaysSignedOut(t *testing.T) {
	inFlight := make(chan struct{})
	release := make(chan struct{})
	cfg := authServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("grant_type") == "refresh_token" {
			close(inFlight)
			<-release
		}
		json.NewEncoder(w).Encode(grantBody("u1", "chef@chantier.fr"))
	})

	g := session.New(cfg)
	require.NoError(t, g.SignIn(context.Background(), "chef@chantier.fr", "secret123"))

	done := make(chan error, 1)
	go func() { done <- g.Refresh(context.Background()) }()
	<-inFlight

	// The user signs out while the grant is still on the wire. Sign-out is
	// unconditional; the grant response landing later must not undo it.
	g.SignOut()
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, session.SignedOut, g.State())
	_, err := g.AccessToken()
	assert.True(t, store.IsUnauthenticated(err))
	_, err = g.Identity()
	assert.True(t, store.IsUnauthenticated(err))
}

func TestRefreshWhileSignedOutIsNoop(t *testing.T) {
	var calls atomic.Int64
	cfg := authServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	g := session.New(cfg)
	require.NoError(t, g.Refresh(context.Background()))
	assert.Zero(t, calls.Load())
}
