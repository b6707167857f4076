package idx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/domainvault/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestNewAndParse(t *testing.T) {
	id := idx.New()
	require.False(t, id.IsZero())

	parsed, err := idx.Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "   ", "1700000000000", "not-a-ulid"} {
		_, err := idx.Parse(s)
		require.ErrorIs(t, err, idx.ErrInvalid, "input %q", s)
	}
}

func TestGeneratorIsMonotonic(t *testing.T) {
	// Same millisecond for every call, ordering must still hold
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	gen := idx.NewGenerator(func() time.Time { return fixed })

	prev := gen.New()
	for range 100 {
		next := gen.New()
		require.Less(t, prev.String(), next.String())
		prev = next
	}
	require.WithinDuration(t, fixed, prev.Time(), time.Millisecond)
}

func TestIsLocal(t *testing.T) {
	require.True(t, idx.IsLocal(idx.New().String()))
	require.False(t, idx.IsLocal("7d0a3c1e-7a43-4a4f-9d67-1f7d3c1b9a10"))
}
