package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/domainvault/internal/vault/domain"
	"github.com/aussiebroadwan/domainvault/internal/vault/store"
	"github.com/aussiebroadwan/domainvault/internal/vault/store/drivers/memory"
)

func TestCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := memory.NewCache()
	_, ok, err := c.Get(ctx, store.KeyDomains)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, store.KeyDomains, "[]"))
	v, ok, err := c.Get(ctx, store.KeyDomains)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", v)

	boom := errors.New("disk full")
	c.FailWith(boom)
	require.ErrorIs(t, c.Set(ctx, "k", "v"), boom)
	require.ErrorIs(t, c.Ping(ctx), boom)
}

func TestRemoteSaveAssignsIDsPerOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := memory.NewRemote()
	repo := r.Domains()

	saved, err := repo.Save(ctx, "alice", domain.Domain{ID: "local-1", Name: "a.com"})
	require.NoError(t, err)
	assert.NotEqual(t, "local-1", saved.ID, "unknown ids insert under a new id")
	assert.Equal(t, "alice", saved.UserID)

	saved.Price = "3"
	again, err := repo.Save(ctx, "alice", saved)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, again.ID)

	// Bob cannot update Alice's record; his save is a new insert.
	bobs, err := repo.Save(ctx, "bob", saved)
	require.NoError(t, err)
	assert.NotEqual(t, saved.ID, bobs.ID)

	list, err := repo.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "3", list[0].Price)

	require.ErrorIs(t, repo.Delete(ctx, "bob", saved.ID), store.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, "alice", saved.ID))
	assert.Equal(t, 1, r.DomainCount())
}

func TestRemoteHook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := memory.NewRemote()
	offline := errors.New("offline")
	r.SetHook(func(_ context.Context, op memory.Op, coll, _ string) error {
		if op == memory.OpSave && coll == "providers" {
			return offline
		}
		return nil
	})

	_, err := r.Providers().Save(ctx, "u", domain.Provider{Name: "x"})
	require.ErrorIs(t, err, offline)

	_, err = r.Domains().Save(ctx, "u", domain.Domain{Name: "x.com"})
	require.NoError(t, err)

	r.SetHook(nil)
	_, err = r.Providers().Save(ctx, "u", domain.Provider{Name: "x"})
	require.NoError(t, err)
}
