package domain

import (
	"bytes"

	"github.com/tidwall/gjson"
)

// Provider is a registrar or hosting service. Username, Password and
// AccountID are the login at the registrar; Password is sealed before it is
// stored anywhere.
type Provider struct {
	ID        string
	Name      string
	URL       string
	Username  string
	Password  string
	AccountID string

	CreatedAt string
	UpdatedAt string

	raw []byte
}

func (p *Provider) UnmarshalJSON(data []byte) error {
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return errNotObject
	}

	*p = Provider{
		ID:        scalar(res.Get("id")),
		Name:      res.Get("name").String(),
		URL:       res.Get("url").String(),
		Username:  res.Get("username").String(),
		Password:  res.Get("password").String(),
		AccountID: scalar(res.Get("userId")),
		CreatedAt: res.Get("createdAt").String(),
		UpdatedAt: res.Get("updatedAt").String(),
		raw:       bytes.Clone(data),
	}
	return nil
}

func (p Provider) MarshalJSON() ([]byte, error) {
	return overlay(p.raw, []field{
		{"id", p.ID, false},
		{"name", p.Name, false},
		{"url", p.URL, false},
		{"username", p.Username, true},
		{"password", p.Password, true},
		{"userId", p.AccountID, true},
		{"createdAt", p.CreatedAt, true},
		{"updatedAt", p.UpdatedAt, true},
	})
}

// Redacted returns a copy without the stored password, for API responses.
func (p Provider) Redacted() Provider {
	out := p
	out.Password = ""
	out.raw, _ = overlay(p.raw, []field{{"password", "", true}})
	return out
}

// MergeProvider is MergeDomain for providers.
func MergeProvider(old, update Provider) (Provider, error) {
	merged, err := mergeObjects(old, update)
	if err != nil {
		return Provider{}, err
	}
	var out Provider
	if err := out.UnmarshalJSON(merged); err != nil {
		return Provider{}, err
	}
	out.ID = old.ID
	return out, nil
}
