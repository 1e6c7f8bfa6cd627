// Package session owns the authenticated identity, the auth token and the
// single realtime connection. The connection lives on the Session struct
// and is reached through it, never through package-level state.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/golang-jwt/jwt/v5"

	"github.com/learnhome/client/internal/api"
	"github.com/learnhome/client/internal/models"
	"github.com/learnhome/client/internal/notify"
	"github.com/learnhome/client/internal/realtime"
	"github.com/learnhome/client/internal/store"
)

type Session struct {
	api       *api.Client
	stores    *store.Stores
	presenter *notify.Presenter
	router    *realtime.Router
	tokens    *TokenStore
	wsURL     string

	mu   sync.RWMutex
	user models.User
	conn *realtime.Conn

	epoch    atomic.Uint64
	onLogout func(reason string)
}

func New(apiClient *api.Client, st *store.Stores, p *notify.Presenter, tokens *TokenStore, wsURL string) *Session {
	s := &Session{
		api:       apiClient,
		stores:    st,
		presenter: p,
		tokens:    tokens,
		wsURL:     wsURL,
	}
	s.router = realtime.NewRouter(s, st, p, apiClient)
	return s
}

// OnLogout registers a callback fired after any teardown, forced or not.
func (s *Session) OnLogout(fn func(reason string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = fn
}

// Restore boots a session from the durable token, if one exists. The token's
// claims give the identity hint (the server remains the authority: the
// profile fetch below fails if the token is bad) and the socket is opened
// keyed by that identity.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	token, ok := s.tokens.Load()
	if !ok {
		return false, nil
	}
	s.api.SetToken(token)

	userID, role, err := identityFromToken(token)
	if err != nil {
		s.tokens.Clear()
		s.api.SetToken("")
		return false, fmt.Errorf("stored token unusable: %w", err)
	}

	profile, res := s.api.Me(ctx)
	if !res.Authorized {
		s.tokens.Clear()
		s.api.SetToken("")
		return false, nil
	}
	s.mu.Lock()
	if res.Valid {
		s.user = profile
	} else {
		// Offline start: run on the claims until the server is reachable.
		s.user = models.User{ID: userID, Role: role}
	}
	s.mu.Unlock()

	if err := s.connect(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// Login authenticates, persists the token and opens the connection.
func (s *Session) Login(ctx context.Context, username, password string) api.Result {
	resp, res := s.api.Login(ctx, username, password)
	if !res.Valid || !res.Authorized {
		return res
	}
	s.api.SetToken(resp.Token)
	if err := s.tokens.Save(resp.Token); err != nil {
		log.Printf("token persist failed: %v", err)
	}
	s.mu.Lock()
	s.user = resp.User
	s.mu.Unlock()

	if err := s.connect(ctx); err != nil {
		return api.Result{Valid: false, Authorized: true, Message: fmt.Sprintf("realtime connect failed: %v", err)}
	}
	return res
}

// connect opens the socket if none is live. Idempotent: an existing live
// connection is reused, never duplicated.
func (s *Session) connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil && s.conn.Alive() {
		return nil
	}
	conn, err := realtime.Dial(ctx, s.wsURL, s.api.Token())
	if err != nil {
		return err
	}
	s.conn = conn
	s.router.Attach(conn)
	return nil
}

// Connection returns the live connection, if any.
func (s *Session) Connection() *realtime.Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn
}

// Logout tears everything down: handlers first so nothing delivers during
// teardown, then the socket, the token and all domain state.
func (s *Session) Logout() {
	s.teardown("logout")
}

// ForceLogout is the unauthorized-REST-result path. Same teardown.
func (s *Session) ForceLogout(reason string) {
	s.teardown(reason)
}

func (s *Session) teardown(reason string) {
	s.epoch.Add(1)

	s.mu.Lock()
	s.router.Detach()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.user = models.User{}
	fn := s.onLogout
	s.mu.Unlock()

	if err := s.tokens.Clear(); err != nil {
		log.Printf("token clear failed: %v", err)
	}
	s.api.SetToken("")
	s.stores.ClearAll()
	s.presenter.Reset()

	if fn != nil {
		fn(reason)
	}
}

// LoggedIn reports whether a user identity is resolved.
func (s *Session) LoggedIn() bool {
	return s.UserID() != ""
}

func (s *Session) User() models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.ID
}

func (s *Session) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Role
}

func (s *Session) Epoch() uint64 {
	return s.epoch.Load()
}

// identityFromToken reads the subject and role claims without verifying the
// signature. Verification is the server's job; the client only needs the
// identity hint to key its connection and filters.
func identityFromToken(token string) (userID, role string, err error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", "", err
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", "", fmt.Errorf("token has no subject")
	}
	role, _ = claims["role"].(string)
	return sub, role, nil
}
