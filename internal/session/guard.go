// Package session holds the single authenticated identity that gates every
// store operation.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"sitetrack/internal/config"
	"sitetrack/internal/store"
)

// State is the guard's position in the auth lifecycle.
type State int

const (
	SignedOut State = iota
	Authenticating
	SignedIn
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case SignedIn:
		return "signed in"
	default:
		return "signed out"
	}
}

// Identity is the authenticated user as the store knows it.
type Identity struct {
	UserID string
	Email  string
}

// EventType marks a committed transition. Authenticating is transient and
// never announced.
type EventType int

const (
	EventSignedIn EventType = iota
	EventSignedOut
)

// Event notifies listeners of a transition so in-flight screens can redirect.
type Event struct {
	Type     EventType
	Identity Identity
}

// Listener receives transition events. Called synchronously, in
// registration order, after the state is committed.
type Listener func(Event)

var (
	// ErrInvalidCredentials is a rejected email/password pair.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrPasswordTooShort blocks sign-up before any network call.
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	// ErrEmailInUse is a sign-up with an already-registered email.
	ErrEmailInUse = errors.New("email already registered")
	// ErrAuthInFlight refuses a second sign-in while one is running.
	ErrAuthInFlight = errors.New("authentication already in progress")
)

// MinPasswordLen is the shortest password sign-up accepts.
const MinPasswordLen = 6

// Guard owns the process-wide session. It starts signed out; sign-out
// clears it. Readers always observe the latest committed state.
type Guard struct {
	baseURL string
	apiKey  string
	http    *http.Client

	mu        sync.Mutex
	state     State
	identity  Identity
	access    string
	refresh   string
	expiresAt time.Time
	listeners []Listener
}

// New builds a signed-out guard for the configured auth endpoint.
func New(cfg config.Config) *Guard {
	return &Guard{
		baseURL: cfg.StoreURL,
		apiKey:  cfg.StoreKey,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// OnChange registers a listener for signed-in/signed-out transitions.
func (g *Guard) OnChange(l Listener) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, l)
}

// State returns the current state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Identity returns the signed-in identity, or an unauthenticated error.
func (g *Guard) Identity() (Identity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != SignedIn {
		return Identity{}, store.ErrNoSession
	}
	return g.identity, nil
}

// AccessToken implements store.TokenSource. An expired or absent session
// fails here, before the store client touches the network.
func (g *Guard) AccessToken() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != SignedIn {
		return "", store.ErrNoSession
	}
	if !g.expiresAt.IsZero() && time.Now().After(g.expiresAt) {
		return "", store.ErrNoSession
	}
	return g.access, nil
}

// tokenResponse is the auth endpoint's grant response.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// authError is the auth endpoint's failure body.
type authError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
	Msg         string `json:"msg"`
}

// SignIn exchanges credentials for a session. On acceptance the guard is
// SignedIn and listeners are notified; on rejection it returns to
// SignedOut with ErrInvalidCredentials.
func (g *Guard) SignIn(ctx context.Context, email, password string) error {
	if err := g.enterAuthenticating(); err != nil {
		return err
	}

	var tr tokenResponse
	err := g.post(ctx, "/auth/v1/token?grant_type=password",
		map[string]string{"email": email, "password": password}, &tr)
	if err != nil {
		g.commitSignedOut(false)
		return err
	}

	g.commitSignedIn(tr)
	return nil
}

// SignUp registers a new identity and signs it in immediately. The
// password length gate runs locally, before any network call.
func (g *Guard) SignUp(ctx context.Context, email, password string) error {
	if len(password) < MinPasswordLen {
		return ErrPasswordTooShort
	}
	if err := g.enterAuthenticating(); err != nil {
		return err
	}

	var tr tokenResponse
	err := g.post(ctx, "/auth/v1/signup",
		map[string]string{"email": email, "password": password}, &tr)
	if err != nil {
		g.commitSignedOut(false)
		return err
	}

	g.commitSignedIn(tr)
	return nil
}

// SignOut unconditionally drops the session. Listeners observe the
// transition synchronously; token revocation at the server is best effort.
func (g *Guard) SignOut() {
	g.mu.Lock()
	token := g.access
	wasLive := g.state != SignedOut
	g.state = SignedOut
	g.identity = Identity{}
	g.access = ""
	g.refresh = ""
	g.expiresAt = time.Time{}
	ls := append([]Listener(nil), g.listeners...)
	g.mu.Unlock()

	if token != "" {
		go g.revoke(token)
	}
	if wasLive {
		for _, l := range ls {
			l(Event{Type: EventSignedOut})
		}
	}
}

// Refresh trades the refresh token for a new access token. A rejected
// refresh token kills the session; transport failures leave it untouched
// so the next tick can retry.
func (g *Guard) Refresh(ctx context.Context) error {
	g.mu.Lock()
	if g.state != SignedIn {
		g.mu.Unlock()
		return nil
	}
	refresh := g.refresh
	g.mu.Unlock()

	var tr tokenResponse
	err := g.post(ctx, "/auth/v1/token?grant_type=refresh_token",
		map[string]string{"refresh_token": refresh}, &tr)
	switch {
	case err == nil:
		g.commitRefreshed(tr, refresh)
		return nil
	case errors.Is(err, ErrInvalidCredentials):
		g.SignOut()
		return fmt.Errorf("refresh rejected: %w", err)
	default:
		return fmt.Errorf("refresh: %w", err)
	}
}

func (g *Guard) enterAuthenticating() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == Authenticating {
		return ErrAuthInFlight
	}
	g.state = Authenticating
	return nil
}

func (g *Guard) commitSignedIn(tr tokenResponse) {
	g.mu.Lock()
	g.state = SignedIn
	g.identity = Identity{UserID: tr.User.ID, Email: tr.User.Email}
	g.access = tr.AccessToken
	g.refresh = tr.RefreshToken
	if tr.ExpiresIn > 0 {
		g.expiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	} else {
		g.expiresAt = time.Time{}
	}
	id := g.identity
	ls := append([]Listener(nil), g.listeners...)
	g.mu.Unlock()

	for _, l := range ls {
		l(Event{Type: EventSignedIn, Identity: id})
	}
}

// commitRefreshed installs the rotated tokens, but only if the session
// that issued the grant is still the live one. A sign-out (or a new
// sign-in) that landed while the grant was in flight wins: the stale
// response is dropped and the session stays as the user left it.
func (g *Guard) commitRefreshed(tr tokenResponse, usedRefresh string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != SignedIn || g.refresh != usedRefresh {
		return
	}
	g.access = tr.AccessToken
	g.refresh = tr.RefreshToken
	if tr.ExpiresIn > 0 {
		g.expiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	} else {
		g.expiresAt = time.Time{}
	}
}

func (g *Guard) commitSignedOut(notify bool) {
	g.mu.Lock()
	g.state = SignedOut
	g.identity = Identity{}
	g.access = ""
	g.refresh = ""
	g.expiresAt = time.Time{}
	ls := append([]Listener(nil), g.listeners...)
	g.mu.Unlock()

	if notify {
		for _, l := range ls {
			l(Event{Type: EventSignedOut})
		}
	}
}

func (g *Guard) post(ctx context.Context, path string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode auth request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("auth request: %w", err)
	}
	req.Header.Set("apikey", g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read auth response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyAuth(resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode auth response: %w", err)
	}
	return nil
}

func classifyAuth(status int, raw []byte) error {
	var ae authError
	_ = json.Unmarshal(raw, &ae)

	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized:
		return ErrInvalidCredentials
	case http.StatusUnprocessableEntity, http.StatusConflict:
		return ErrEmailInUse
	}
	msg := ae.Description
	if msg == "" {
		msg = ae.Msg
	}
	return fmt.Errorf("auth: status %d: %s", status, msg)
}

func (g *Guard) revoke(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return
	}
	req.Header.Set("apikey", g.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := g.http.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}
