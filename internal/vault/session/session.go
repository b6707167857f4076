// Package session tracks who, if anyone, the portfolio belongs to and drives
// the coordinator through sign-in and sign-out.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/aussiebroadwan/domainvault/internal/vault/coordinator"
	"github.com/aussiebroadwan/domainvault/pkg/jwtx"
)

var ErrNoSubject = errors.New("session: token has no subject")

// Identity is a signed-in user as the auth service describes them.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
}

// IdentityFromClaims maps verified token claims to an Identity.
func IdentityFromClaims(c jwtx.Claims) (Identity, error) {
	if c.Subject == "" {
		return Identity{}, ErrNoSubject
	}
	name := c.Username
	if name == "" {
		name = c.PreferredName
	}
	return Identity{UserID: c.Subject, Username: name}, nil
}

// Status is the gate's current view.
type Status struct {
	State    string    `json:"state"`
	Identity *Identity `json:"identity,omitempty"`
}

// Gate serialises sign-in and sign-out so the coordinator only ever hydrates
// for one identity at a time.
type Gate struct {
	coord *coordinator.Coordinator
	log   *slog.Logger

	// transition is held for the whole of a sign-in or sign-out.
	transition sync.Mutex

	mu       sync.RWMutex
	identity *Identity
}

func NewGate(coord *coordinator.Coordinator, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{coord: coord, log: logger.With("component", "session")}
}

// Start hydrates the anonymous portfolio from the local cache.
func (g *Gate) Start(ctx context.Context) error {
	g.transition.Lock()
	defer g.transition.Unlock()
	return g.coord.Start(ctx)
}

// SignIn hydrates the portfolio of id. A returned error wrapping
// coordinator.ErrRemoteUnavailable means the user is signed in but working
// from the local cache.
func (g *Gate) SignIn(ctx context.Context, id Identity) error {
	if id.UserID == "" {
		return ErrNoSubject
	}

	g.transition.Lock()
	defer g.transition.Unlock()

	if state, current := g.coord.Status(); state == coordinator.Authenticated && current != id.UserID {
		g.coord.SignOut(ctx)
	}

	err := g.coord.SignIn(ctx, id.UserID)
	if err != nil && !errors.Is(err, coordinator.ErrRemoteUnavailable) {
		g.log.Error("sign-in failed", "user_id", id.UserID, "error", err)
	}

	if state, _ := g.coord.Status(); state == coordinator.Authenticated {
		g.mu.Lock()
		g.identity = &id
		g.mu.Unlock()
		g.log.Info("signed in", "user_id", id.UserID, "degraded", err != nil)
	}
	return err
}

// SignOut forgets the identity and empties the entity store. The local
// cache keeps its contents.
func (g *Gate) SignOut(ctx context.Context) {
	g.transition.Lock()
	defer g.transition.Unlock()

	g.mu.Lock()
	prev := g.identity
	g.identity = nil
	g.mu.Unlock()

	g.coord.SignOut(ctx)
	if prev != nil {
		g.log.Info("signed out", "user_id", prev.UserID)
	}
}

// Current reports the signed-in identity, if any, and the lifecycle state.
func (g *Gate) Current() Status {
	state, _ := g.coord.Status()

	g.mu.RLock()
	defer g.mu.RUnlock()
	st := Status{State: state.String()}
	if g.identity != nil {
		id := *g.identity
		st.Identity = &id
	}
	return st
}
