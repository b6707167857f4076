package store

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/aussiebroadwan/domainvault/internal/vault/domain"
)

// MaxQuarantine bounds how many rejected records a quarantine key keeps.
const MaxQuarantine = 200

// Record is what the cache codec can decode and check.
type Record[T any] interface {
	*T
	json.Unmarshaler
	Normalize()
	Check() error
}

// Rejected is a record that failed to decode or check.
type Rejected struct {
	Raw    json.RawMessage `json:"raw"`
	Reason string          `json:"reason"`
	At     string          `json:"at"`
}

// DecodeRecords reads a JSON array, normalising and checking each element.
// Elements that fail are returned as rejects instead of aborting. A value
// that is not an array at all is ErrCorrupt, with the whole value rejected.
func DecodeRecords[T any, PT Record[T]](value string, now time.Time) ([]T, []Rejected, error) {
	stamp := now.UTC().Format(time.RFC3339)

	res := gjson.Parse(value)
	if !res.IsArray() {
		rej := Rejected{Raw: rawOrString(value), Reason: "not a JSON array", At: stamp}
		return nil, []Rejected{rej}, ErrCorrupt
	}

	var (
		out      []T
		rejected []Rejected
	)
	res.ForEach(func(_, v gjson.Result) bool {
		var rec T
		p := PT(&rec)
		if err := p.UnmarshalJSON([]byte(v.Raw)); err != nil {
			rejected = append(rejected, Rejected{Raw: rawOrString(v.Raw), Reason: err.Error(), At: stamp})
			return true
		}
		p.Normalize()
		if err := p.Check(); err != nil {
			rejected = append(rejected, Rejected{Raw: json.RawMessage(v.Raw), Reason: err.Error(), At: stamp})
			return true
		}
		out = append(out, rec)
		return true
	})
	return out, rejected, nil
}

// DecodeDomains is DecodeRecords for domains.
func DecodeDomains(value string, now time.Time) ([]domain.Domain, []Rejected, error) {
	return DecodeRecords[domain.Domain](value, now)
}

// DecodeProviders is DecodeRecords for providers.
func DecodeProviders(value string, now time.Time) ([]domain.Provider, []Rejected, error) {
	return DecodeRecords[domain.Provider](value, now)
}

// EncodeRecords writes records as a JSON array. A nil slice encodes as [].
func EncodeRecords[T any](recs []T) (string, error) {
	if recs == nil {
		return "[]", nil
	}
	b, err := json.Marshal(recs)
	if err != nil {
		return "", fmt.Errorf("store: encode: %w", err)
	}
	return string(b), nil
}

// Quarantine appends rejects to the list kept under key, dropping the oldest
// beyond MaxQuarantine.
func Quarantine(ctx context.Context, cache LocalCache, key string, rejected []Rejected) error {
	if len(rejected) == 0 {
		return nil
	}

	var existing []Rejected
	if v, ok, err := cache.Get(ctx, key); err != nil {
		return err
	} else if ok {
		// An unreadable quarantine list is replaced rather than blocking.
		_ = json.Unmarshal([]byte(v), &existing)
	}

	all := append(existing, rejected...)
	if len(all) > MaxQuarantine {
		all = all[len(all)-MaxQuarantine:]
	}

	b, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("store: encode quarantine: %w", err)
	}
	return cache.Set(ctx, key, string(b))
}

// rawOrString keeps valid JSON as is and wraps anything else as a string.
func rawOrString(s string) json.RawMessage {
	if gjson.Valid(s) {
		return json.RawMessage(s)
	}
	b, _ := json.Marshal(s)
	return b
}
