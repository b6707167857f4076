package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aussiebroadwan/domainvault/internal/vault/store"
)

// enqueue runs fn on the serializer for key with the coordinator's
// background context.
func (c *Coordinator) enqueue(key string, fn func(ctx context.Context)) {
	c.tasks.Add(1)
	c.metrics.TaskQueued()
	c.serial.run(key, func() {
		defer c.tasks.Done()
		defer c.metrics.TaskDone()
		fn(c.baseCtx)
	})
}

func dispatchSave[T any](c *Coordinator, e *entity[T], key string, version uint64, rec T) *Write[T] {
	w := newWrite(rec)
	userID, ok := c.remoteTarget()
	if !ok {
		w.resolve(SyncResult{ID: e.id(rec)})
		return w
	}
	c.enqueue(key, func(ctx context.Context) {
		w.resolve(runSave(ctx, c, e, key, version, userID, rec))
	})
	return w
}

func dispatchDelete[T any](c *Coordinator, e *entity[T], key string, rec T) *Write[T] {
	w := newWrite(rec)
	userID, ok := c.remoteTarget()
	if !ok {
		w.resolve(SyncResult{ID: e.id(rec)})
		return w
	}
	c.enqueue(key, func(ctx context.Context) {
		w.resolve(runDelete(ctx, c, e, key, userID, e.id(rec)))
	})
	return w
}

func runSave[T any](ctx context.Context, c *Coordinator, e *entity[T], key string, version uint64, userID string, rec T) SyncResult {
	c.mu.Lock()
	target := e.id(rec)
	if remote, ok := c.aliases[key]; ok {
		target = remote
	}
	deleted := c.tombstones[key]
	c.mu.Unlock()

	// Deleted before it ever reached the remote; the delete task that
	// follows handles anything already stored.
	if deleted {
		return SyncResult{ID: target}
	}

	e.setID(&rec, target)
	saved, err := callRemote(ctx, c, "save", e.kind, func(ctx context.Context) (T, error) {
		return e.repo(c.remote).Save(ctx, userID, rec)
	})
	if err != nil {
		warn := fmt.Errorf("%w: save %s %s: %w", ErrRemoteUnavailable, e.kind, target, err)
		c.log.Warn("remote save failed", "kind", e.kind, "id", target, "error", err)
		return SyncResult{ID: target, Warning: warn}
	}
	remoteID := e.id(saved)

	c.localMu.Lock()
	c.mu.Lock()
	if remoteID != target {
		c.aliases[key] = remoteID
		c.origins[e.prefix+":"+remoteID] = key
	}
	deleted = c.tombstones[key]
	stale := c.versions[key] != version
	c.mu.Unlock()

	if !deleted && remoteID != target && e.rekey(c.state, target, remoteID) {
		persist(ctx, c, e)
	}
	c.localMu.Unlock()

	if deleted {
		// Deleted locally while the insert was in flight. Remove the copy
		// so it does not come back on the next sign-in.
		if err := deleteRemote(ctx, c, e, userID, remoteID); err != nil {
			return SyncResult{ID: remoteID, Warning: err}
		}
		return SyncResult{ID: remoteID, Synced: true}
	}
	if stale {
		c.metrics.IncStale()
		c.log.Debug("remote save superseded by a later local write", "kind", e.kind, "id", remoteID)
	}
	return SyncResult{ID: remoteID, Synced: true}
}

func runDelete[T any](ctx context.Context, c *Coordinator, e *entity[T], key, userID, id string) SyncResult {
	c.mu.Lock()
	target := id
	if remote, ok := c.aliases[key]; ok {
		target = remote
	}
	c.mu.Unlock()

	if err := deleteRemote(ctx, c, e, userID, target); err != nil {
		return SyncResult{ID: target, Warning: err}
	}
	return SyncResult{ID: target, Synced: true}
}

// deleteRemote treats a record the remote never had as deleted.
func deleteRemote[T any](ctx context.Context, c *Coordinator, e *entity[T], userID, id string) error {
	_, err := callRemote(ctx, c, "delete", e.kind, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.repo(c.remote).Delete(ctx, userID, id)
	})
	if err == nil || errors.Is(err, store.ErrNotFound) {
		return nil
	}
	c.log.Warn("remote delete failed", "kind", e.kind, "id", id, "error", err)
	return fmt.Errorf("%w: delete %s %s: %w", ErrRemoteUnavailable, e.kind, id, err)
}

// callRemote wraps one remote call with the rate limiter, a span and the
// call metrics.
func callRemote[R any](ctx context.Context, c *Coordinator, op, kind string, fn func(context.Context) (R, error)) (R, error) {
	ctx, span := c.tracer.Start(ctx, "remote."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("vault.kind", kind)),
	)
	defer span.End()

	start := time.Now()
	var zero R
	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.metrics.ObserveRemote(op, start, err)
		return zero, err
	}

	res, err := fn(ctx)
	c.metrics.ObserveRemote(op, start, err)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

// persist writes the entity store's current records of one kind to the
// cache. Failures are logged and counted; the in-memory state stays
// authoritative. Callers hold localMu.
func persist[T any](ctx context.Context, c *Coordinator, e *entity[T]) {
	value, err := store.EncodeRecords(e.list(c.state))
	if err == nil {
		err = c.cache.Set(context.WithoutCancel(ctx), e.cacheKey, value)
	}
	if err != nil {
		c.metrics.IncCacheWriteFailure()
		c.log.Error("local cache write failed", "key", e.cacheKey, "error", err)
	}
}
