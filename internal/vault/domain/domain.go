// Package domain defines the records a portfolio is made of and how they are
// read from and written to JSON. Records keep the raw object they were
// decoded from, so keys this version does not know survive every rewrite.
package domain

import (
	"bytes"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Domain is one owned name.
type Domain struct {
	ID            string
	Name          string
	Provider      string
	RenewalDate   string
	Price         string
	PurchaseDate  string
	PurchasePrice string
	AutoRenew     bool

	// UserID is the portfolio owner on remote copies.
	UserID string

	CreatedAt string
	UpdatedAt string

	raw []byte
}

var errNotObject = errors.New("domain: record is not a JSON object")

// UnmarshalJSON reads known keys leniently: numbers and strings are both
// accepted for price fields and several spellings of true for autoRenew.
func (d *Domain) UnmarshalJSON(data []byte) error {
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return errNotObject
	}

	*d = Domain{
		ID:            scalar(res.Get("id")),
		Name:          res.Get("name").String(),
		Provider:      res.Get("provider").String(),
		RenewalDate:   res.Get("renewalDate").String(),
		Price:         scalar(res.Get("price")),
		PurchaseDate:  res.Get("purchaseDate").String(),
		PurchasePrice: scalar(res.Get("purchasePrice")),
		AutoRenew:     truthy(res.Get("autoRenew")),
		UserID:        res.Get("userId").String(),
		CreatedAt:     res.Get("createdAt").String(),
		UpdatedAt:     res.Get("updatedAt").String(),
		raw:           bytes.Clone(data),
	}
	return nil
}

// MarshalJSON writes the known fields over the raw object the record came
// from. Empty optional fields are omitted.
func (d Domain) MarshalJSON() ([]byte, error) {
	return overlay(d.raw, []field{
		{"id", d.ID, false},
		{"name", d.Name, false},
		{"provider", d.Provider, false},
		{"renewalDate", d.RenewalDate, false},
		{"price", d.Price, false},
		{"purchaseDate", d.PurchaseDate, true},
		{"purchasePrice", d.PurchasePrice, true},
		{"autoRenew", d.AutoRenew, false},
		{"userId", d.UserID, true},
		{"createdAt", d.CreatedAt, true},
		{"updatedAt", d.UpdatedAt, true},
	})
}

// Extra returns the value of a key this type does not model.
func (d Domain) Extra(key string) (string, bool) {
	r := gjson.GetBytes(d.raw, gjson.Escape(key))
	return r.Raw, r.Exists()
}

// MergeDomain applies update on top of old the way a form save does: keys
// present in update win, everything else on old (unknown keys included)
// survives. The id of old is kept.
func MergeDomain(old, update Domain) (Domain, error) {
	merged, err := mergeObjects(old, update)
	if err != nil {
		return Domain{}, err
	}
	var out Domain
	if err := out.UnmarshalJSON(merged); err != nil {
		return Domain{}, err
	}
	out.ID = old.ID
	return out, nil
}

// PatchDomain builds an update for MergeDomain that carries only the given
// keys, so every other field of the stored record is left alone.
func PatchDomain(id string, fields map[string]any) (Domain, error) {
	raw, err := patchObject(id, fields)
	if err != nil {
		return Domain{}, err
	}
	var d Domain
	err = d.UnmarshalJSON(raw)
	return d, err
}

func patchObject(id string, fields map[string]any) ([]byte, error) {
	out, err := sjson.SetBytes([]byte("{}"), "id", id)
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		if out, err = sjson.SetBytes(out, gjson.Escape(k), v); err != nil {
			return nil, fmt.Errorf("domain: patch %s: %w", k, err)
		}
	}
	return out, nil
}

type field struct {
	key      string
	value    any
	optional bool
}

func overlay(raw []byte, fields []field) ([]byte, error) {
	out := []byte("{}")
	if len(raw) > 0 {
		out = bytes.Clone(raw)
	}

	var err error
	for _, f := range fields {
		if s, ok := f.value.(string); ok && f.optional && s == "" {
			if !gjson.GetBytes(out, f.key).Exists() {
				continue
			}
			out, err = sjson.DeleteBytes(out, f.key)
		} else {
			out, err = sjson.SetBytes(out, f.key, f.value)
		}
		if err != nil {
			return nil, fmt.Errorf("domain: encode %s: %w", f.key, err)
		}
	}
	return out, nil
}

// mergeObjects shallow-merges the JSON objects of two records. When update
// was decoded from JSON only the keys it actually carried are applied.
func mergeObjects(old, update json.Marshaler) ([]byte, error) {
	oldRaw, err := old.MarshalJSON()
	if err != nil {
		return nil, err
	}
	upRaw, err := rawOf(update)
	if err != nil {
		return nil, err
	}

	var base, patch map[string]json.RawMessage
	if err := json.Unmarshal(oldRaw, &base); err != nil {
		return nil, fmt.Errorf("domain: merge: %w", err)
	}
	if err := json.Unmarshal(upRaw, &patch); err != nil {
		return nil, fmt.Errorf("domain: merge: %w", err)
	}
	for k, v := range patch {
		base[k] = v
	}
	return json.Marshal(base)
}

func rawOf(v json.Marshaler) ([]byte, error) {
	switch r := v.(type) {
	case Domain:
		if len(r.raw) > 0 {
			return r.raw, nil
		}
	case Provider:
		if len(r.raw) > 0 {
			return r.raw, nil
		}
	}
	return v.MarshalJSON()
}

// scalar returns strings as is and numbers in their literal form, so a
// price of 12.50 stays "12.50" rather than going through a float.
func scalar(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number:
		return r.Raw
	default:
		return ""
	}
}

func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.True:
		return true
	case gjson.String:
		return r.Str == "1" || r.Str == "true"
	case gjson.Number:
		return r.Num == 1
	default:
		return false
	}
}
