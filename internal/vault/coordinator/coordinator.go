// Package coordinator keeps the portfolio in step with its two backends:
// the local cache, written synchronously on every change, and the remote
// store, written asynchronously once a user is signed in.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/aussiebroadwan/domainvault/internal/vault/datemath"
	"github.com/aussiebroadwan/domainvault/internal/vault/domain"
	"github.com/aussiebroadwan/domainvault/internal/vault/metrics"
	"github.com/aussiebroadwan/domainvault/internal/vault/portfolio"
	"github.com/aussiebroadwan/domainvault/internal/vault/store"
	"github.com/aussiebroadwan/domainvault/pkg/cryptox"
	"github.com/aussiebroadwan/domainvault/pkg/idx"
	"github.com/aussiebroadwan/domainvault/pkg/slogx"
)

var (
	// ErrRemoteUnavailable wraps any remote failure. It is always a warning:
	// the local write it accompanies has already happened.
	ErrRemoteUnavailable = errors.New("coordinator: remote store unavailable")
	ErrNotFound          = errors.New("coordinator: not found")
	ErrDeclined          = errors.New("coordinator: declined")
	ErrInvalid           = domain.ErrInvalid
)

// State is where the coordinator is in the sign-in lifecycle.
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Config wires a Coordinator. Portfolio, Cache and Sealer are required.
type Config struct {
	Portfolio *portfolio.PortfolioState
	Cache     store.LocalCache
	Sealer    *cryptox.Sealer

	// Remote may be nil, in which case signing in only changes state.
	Remote store.RemoteStore

	Clock   datemath.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Tracer  trace.Tracer

	// RemoteRPS throttles remote calls. Zero or less is unlimited.
	RemoteRPS float64

	// Rand drives sample data. Nil uses a clock-seeded source.
	Rand *rand.Rand
}

type Coordinator struct {
	state   *portfolio.PortfolioState
	cache   store.LocalCache
	remote  store.RemoteStore
	sealer  *cryptox.Sealer
	clock   datemath.Clock
	log     *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	limiter *rate.Limiter
	ids     *idx.Generator
	rnd     *rand.Rand

	// localMu orders local mutations and cache writes. It is always taken
	// before mu.
	localMu sync.Mutex

	mu         sync.Mutex
	status     State
	userID     string
	aliases    map[string]string // record key -> remote id
	origins    map[string]string // prefix:remote id -> record key
	versions   map[string]uint64 // record key -> local mutation count
	tombstones map[string]bool   // record key -> deleted locally

	serial *serializer
	tasks  sync.WaitGroup

	baseCtx context.Context
	cancel  context.CancelFunc
}

// New validates cfg and returns an Unauthenticated coordinator. The entity
// store stays empty until Start or SignIn hydrates it.
func New(cfg Config) (*Coordinator, error) {
	switch {
	case cfg.Portfolio == nil:
		return nil, errors.New("coordinator: portfolio is required")
	case cfg.Cache == nil:
		return nil, errors.New("coordinator: local cache is required")
	case cfg.Sealer == nil:
		return nil, errors.New("coordinator: sealer is required")
	}

	clock := cfg.Clock
	if clock == nil {
		clock = datemath.SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/aussiebroadwan/domainvault/internal/vault/coordinator")
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RemoteRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RemoteRPS), max(1, int(cfg.RemoteRPS)))
	}
	rnd := cfg.Rand
	if rnd == nil {
		seed := uint64(clock.Now().UnixNano())
		rnd = rand.New(rand.NewPCG(seed, seed>>1|1))
	}

	// Remote tasks outlive the requests that start them.
	baseCtx, cancel := context.WithCancel(slogx.WithContext(context.Background(), logger))

	return &Coordinator{
		state:      cfg.Portfolio,
		cache:      cfg.Cache,
		remote:     cfg.Remote,
		sealer:     cfg.Sealer,
		clock:      clock,
		log:        logger.With("component", "coordinator"),
		metrics:    cfg.Metrics,
		tracer:     tracer,
		limiter:    limiter,
		ids:        idx.NewGenerator(clock.Now),
		rnd:        rnd,
		aliases:    make(map[string]string),
		origins:    make(map[string]string),
		versions:   make(map[string]uint64),
		tombstones: make(map[string]bool),
		serial:     newSerializer(),
		baseCtx:    baseCtx,
		cancel:     cancel,
	}, nil
}

// Portfolio exposes the entity store for reads.
func (c *Coordinator) Portfolio() *portfolio.PortfolioState { return c.state }

// Status reports the lifecycle state and the signed-in owner.
func (c *Coordinator) Status() (State, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status, c.userID
}

// HasRemote reports whether a remote store is configured.
func (c *Coordinator) HasRemote() bool { return c.remote != nil }

// Start hydrates from the local cache for anonymous use.
func (c *Coordinator) Start(ctx context.Context) error {
	c.localMu.Lock()
	defer c.localMu.Unlock()
	return c.hydrateLocalLocked(ctx)
}

// SignIn hydrates from the remote store for userID. When the remote cannot
// be read the local cache is used instead and the returned error wraps
// ErrRemoteUnavailable; the coordinator is Authenticated either way and
// later writes still try the remote.
func (c *Coordinator) SignIn(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("coordinator: empty user id")
	}

	c.mu.Lock()
	c.status = Authenticating
	c.userID = userID
	c.mu.Unlock()

	c.localMu.Lock()
	defer c.localMu.Unlock()

	if c.remote == nil {
		err := c.hydrateLocalLocked(ctx)
		c.setStatus(Authenticated)
		return err
	}

	pending, err := c.hydrateRemoteLocked(ctx, userID)
	if err != nil {
		warn := fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
		c.log.Warn("remote hydration failed, using local cache", "user_id", userID, "error", err)
		c.metrics.IncHydration("fallback")

		localErr := c.hydrateLocalLocked(ctx)
		c.setStatus(Authenticated)
		return errors.Join(warn, localErr)
	}

	c.setStatus(Authenticated)
	pending.dispatch(c)
	return nil
}

// SignOut drops the signed-in portfolio from memory. The local cache is
// left as it is. Remote tasks already queued still finish.
func (c *Coordinator) SignOut(context.Context) {
	c.mu.Lock()
	c.status = Unauthenticated
	c.userID = ""
	c.mu.Unlock()

	c.localMu.Lock()
	c.state.Clear()
	c.localMu.Unlock()
}

// Close waits for queued remote tasks until ctx is done, then cancels any
// still running.
func (c *Coordinator) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.tasks.Wait()
		close(done)
	}()

	defer c.cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("coordinator: remote tasks still running: %w", ctx.Err())
	}
}

func (c *Coordinator) setStatus(s State) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

func (c *Coordinator) remoteTarget() (userID string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != Authenticated || c.remote == nil {
		return "", false
	}
	return c.userID, true
}

func (c *Coordinator) now() time.Time { return c.clock.Now() }
