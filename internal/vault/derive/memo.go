package derive

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// Memo caches derived results per portfolio revision and UTC day. Renewal
// dates are UTC midnights, so days-until only changes when the UTC date
// does. Results that embed now itself must not be memoised. Entries for old
// revisions age out on their own.
type Memo struct {
	c *cache.Cache
}

func NewMemo(ttl time.Duration) *Memo {
	return &Memo{c: cache.New(ttl, 2*ttl)}
}

// Get returns the cached value for name at (revision, day of now), or
// computes and stores it.
func Get[T any](m *Memo, name string, revision uint64, now time.Time, compute func() T) T {
	if m == nil {
		return compute()
	}
	key := fmt.Sprintf("%s:%d:%s", name, revision, now.UTC().Format(time.DateOnly))
	if v, ok := m.c.Get(key); ok {
		if t, ok := v.(T); ok {
			return t
		}
	}
	v := compute()
	m.c.SetDefault(key, v)
	return v
}

// Flush drops every entry.
func (m *Memo) Flush() { m.c.Flush() }
