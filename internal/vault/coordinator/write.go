package coordinator

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/domainvault/internal/vault/domain"
)

// SyncResult is the outcome of the remote half of a write.
type SyncResult struct {
	// ID is the record's id once the write settled. It differs from the
	// local id when the remote store assigned a new one.
	ID     string
	Synced bool

	// Warning wraps ErrRemoteUnavailable when the remote write failed.
	Warning error
}

// Write is a local mutation that has already been applied. The remote half,
// if any, completes in the background.
type Write[T any] struct {
	Record T

	done   chan struct{}
	result SyncResult
}

func newWrite[T any](rec T) *Write[T] {
	return &Write[T]{Record: rec, done: make(chan struct{})}
}

func (w *Write[T]) resolve(r SyncResult) {
	w.result = r
	close(w.done)
}

// Done is closed once the remote half has finished.
func (w *Write[T]) Done() <-chan struct{} { return w.done }

// Wait blocks for the remote half or until ctx is done. Giving up early does
// not cancel the remote call.
func (w *Write[T]) Wait(ctx context.Context) SyncResult {
	select {
	case <-w.done:
		return w.result
	case <-ctx.Done():
		return SyncResult{Warning: ctx.Err()}
	}
}

// Credentials are a provider's decrypted login details.
type Credentials struct {
	Username  string
	Password  string
	AccountID string
}

// SaveDomain creates d when it has no id, or merges it over the stored
// domain with that id. Fields the update does not carry are kept.
func (c *Coordinator) SaveDomain(ctx context.Context, d domain.Domain) (*Write[domain.Domain], error) {
	return save(ctx, c, domains, d)
}

// SaveProvider is SaveDomain for providers. Passwords are sealed before they
// reach either store.
func (c *Coordinator) SaveProvider(ctx context.Context, p domain.Provider) (*Write[domain.Provider], error) {
	return save(ctx, c, providers, p)
}

// DeleteDomain removes a domain. A missing id changes nothing and reports
// ErrNotFound.
func (c *Coordinator) DeleteDomain(ctx context.Context, id string) (*Write[domain.Domain], error) {
	return remove(ctx, c, domains, id)
}

// ProviderDeletePrompt is the confirmation shown before removing a provider
// that count domains still reference.
func ProviderDeletePrompt(count int) string {
	if count > 0 {
		return fmt.Sprintf("This provider has %d domains. Deleting it may affect these domains. Continue?", count)
	}
	return "Are you sure you want to delete this provider?"
}

// ConfirmAlways accepts every prompt.
func ConfirmAlways(string) bool { return true }

// DeclinedError is the ErrDeclined a provider delete reports. Count is the
// number of domains that named the provider when the prompt was shown.
type DeclinedError struct {
	Prompt string
	Count  int
}

func (e *DeclinedError) Error() string { return ErrDeclined.Error() + ": " + e.Prompt }

func (e *DeclinedError) Is(target error) bool { return target == ErrDeclined }

// DeleteProvider asks confirm before removing a provider. A nil confirm, or
// one that returns false, leaves everything untouched and reports a
// *DeclinedError. Domains referencing the provider are kept.
func (c *Coordinator) DeleteProvider(ctx context.Context, id string, confirm func(prompt string) bool) (*Write[domain.Provider], error) {
	c.localMu.Lock()
	p, ok := c.state.Provider(c.canonical(providers.prefix, id))
	count := 0
	if ok {
		count = len(c.state.DomainsForProvider(p.Name))
	}
	c.localMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: provider %q", ErrNotFound, id)
	}

	prompt := ProviderDeletePrompt(count)
	if confirm == nil || !confirm(prompt) {
		return nil, &DeclinedError{Prompt: prompt, Count: count}
	}
	return remove(ctx, c, providers, p.ID)
}

// ProviderCredentials opens the stored password of provider id.
func (c *Coordinator) ProviderCredentials(id string) (Credentials, error) {
	c.localMu.Lock()
	p, ok := c.state.Provider(c.canonical(providers.prefix, id))
	c.localMu.Unlock()
	if !ok {
		return Credentials{}, fmt.Errorf("%w: provider %q", ErrNotFound, id)
	}

	creds := Credentials{Username: p.Username, AccountID: p.AccountID}
	if p.Password != "" {
		plain, err := c.sealer.Open(p.Password)
		if err != nil {
			return Credentials{}, fmt.Errorf("coordinator: open password: %w", err)
		}
		creds.Password = plain
	}
	return creds, nil
}

func save[T any](ctx context.Context, c *Coordinator, e *entity[T], rec T) (*Write[T], error) {
	now := c.now()

	c.localMu.Lock()
	defer c.localMu.Unlock()

	if id := e.id(rec); id != "" {
		existing, ok := e.get(c.state, c.canonical(e.prefix, id))
		if !ok {
			return nil, fmt.Errorf("%w: %s %q", ErrNotFound, e.kind, id)
		}
		merged, err := e.merge(existing, rec)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		rec = merged
	} else {
		e.setID(&rec, c.ids.New().String())
	}

	if err := e.prepare(c, &rec, now); err != nil {
		return nil, err
	}

	stored := e.upsert(c.state, rec)
	key, version := c.touch(e.prefix, e.id(stored), false)
	persist(ctx, c, e)

	return dispatchSave(c, e, key, version, stored), nil
}

func remove[T any](ctx context.Context, c *Coordinator, e *entity[T], id string) (*Write[T], error) {
	c.localMu.Lock()
	defer c.localMu.Unlock()

	id = c.canonical(e.prefix, id)
	rec, ok := e.get(c.state, id)
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", ErrNotFound, e.kind, id)
	}

	e.remove(c.state, id)
	key, _ := c.touch(e.prefix, id, true)
	persist(ctx, c, e)

	return dispatchDelete(c, e, key, rec), nil
}

// touch records a local mutation of a record and returns its key and new
// version.
func (c *Coordinator) touch(prefix, id string, deleted bool) (string, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.keyForLocked(prefix, id)
	c.versions[key]++
	if deleted {
		c.tombstones[key] = true
	} else {
		delete(c.tombstones, key)
	}
	return key, c.versions[key]
}

// keyForLocked maps an id, local or remote, to the key the record was first
// written under. Remote ids learned from the store map back to their origin.
func (c *Coordinator) keyForLocked(prefix, id string) string {
	if origin, ok := c.origins[prefix+":"+id]; ok {
		return origin
	}
	return prefix + ":" + id
}

// canonical returns the id a record currently has in the entity store,
// following a local id to the remote id that replaced it.
func (c *Coordinator) canonical(prefix, id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if remote, ok := c.aliases[c.keyForLocked(prefix, id)]; ok {
		return remote
	}
	return id
}
