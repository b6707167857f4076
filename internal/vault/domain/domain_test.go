package domain_test

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/aussiebroadwan/domainvault/internal/vault/domain"
)

func TestDomainDecodeIsLenient(t *testing.T) {
	t.Parallel()

	raw := `{"id":1700000000000,"name":"Example.COM","provider":"Namecheap",
		"renewalDate":"2026-05-01T00:00:00.000Z","price":12.50,"autoRenew":"1",
		"status":"active","tags":["a","b"]}`

	var d domain.Domain
	require.NoError(t, json.Unmarshal([]byte(raw), &d))

	assert.Equal(t, "1700000000000", d.ID)
	assert.Equal(t, "12.50", d.Price)
	assert.True(t, d.AutoRenew)

	d.Normalize()
	assert.Equal(t, "example.com", d.Name)
	assert.Equal(t, "2026-05-01", d.RenewalDate)
	require.NoError(t, d.Validate())
}

func TestDomainPreservesUnknownKeys(t *testing.T) {
	t.Parallel()

	raw := `{"id":"a","name":"a.com","provider":"p","renewalDate":"2026-01-01","price":"1","autoRenew":false,"status":"expired","domains":3}`

	var d domain.Domain
	require.NoError(t, json.Unmarshal([]byte(raw), &d))
	d.Price = "2.00"

	out, err := json.Marshal(d)
	require.NoError(t, err)

	assert.Equal(t, "expired", gjson.GetBytes(out, "status").String())
	assert.Equal(t, int64(3), gjson.GetBytes(out, "domains").Int())
	assert.Equal(t, "2.00", gjson.GetBytes(out, "price").String())

	v, ok := d.Extra("status")
	require.True(t, ok)
	assert.Equal(t, `"expired"`, v)
}

func TestDomainOmitsEmptyOptionalFields(t *testing.T) {
	t.Parallel()

	d := domain.Domain{ID: "x", Name: "x.org", Provider: "p", RenewalDate: "2026-01-01", Price: "5"}
	out, err := json.Marshal(d)
	require.NoError(t, err)

	assert.False(t, gjson.GetBytes(out, "purchasePrice").Exists())
	assert.False(t, gjson.GetBytes(out, "userId").Exists())
	assert.True(t, gjson.GetBytes(out, "autoRenew").Exists())
}

func TestMergeDomain(t *testing.T) {
	t.Parallel()

	var old domain.Domain
	require.NoError(t, json.Unmarshal([]byte(
		`{"id":"keep","name":"a.com","provider":"p","renewalDate":"2026-01-01","price":"1","autoRenew":false,"legacy":true}`,
	), &old))

	var patch domain.Domain
	require.NoError(t, json.Unmarshal([]byte(`{"id":"other","price":"9.99"}`), &patch))

	merged, err := domain.MergeDomain(old, patch)
	require.NoError(t, err)

	assert.Equal(t, "keep", merged.ID)
	assert.Equal(t, "a.com", merged.Name)
	assert.Equal(t, "9.99", merged.Price)
	_, ok := merged.Extra("legacy")
	assert.True(t, ok)
}

func TestPatchDomain(t *testing.T) {
	t.Parallel()

	var old domain.Domain
	require.NoError(t, json.Unmarshal([]byte(
		`{"id":"d1","name":"a.com","provider":"p","renewalDate":"2025-01-01","price":"1","autoRenew":true}`,
	), &old))

	patch, err := domain.PatchDomain("d1", map[string]any{"renewalDate": "2027-01-01"})
	require.NoError(t, err)

	merged, err := domain.MergeDomain(old, patch)
	require.NoError(t, err)
	assert.Equal(t, "2027-01-01", merged.RenewalDate)
	assert.Equal(t, "a.com", merged.Name)
	assert.True(t, merged.AutoRenew)
}

func TestDomainValidate(t *testing.T) {
	t.Parallel()

	base := domain.Domain{Name: "a.com", Provider: "p", RenewalDate: "2026-01-01", Price: "10.00"}

	tests := []struct {
		name  string
		edit  func(*domain.Domain)
		field string
	}{
		{"empty name", func(d *domain.Domain) { d.Name = "" }, "name"},
		{"bare suffix", func(d *domain.Domain) { d.Name = "co.uk" }, "name"},
		{"empty label", func(d *domain.Domain) { d.Name = "a..com" }, "name"},
		{"bad date", func(d *domain.Domain) { d.RenewalDate = "01/02/2026" }, "renewalDate"},
		{"negative price", func(d *domain.Domain) { d.Price = "-1" }, "price"},
		{"non numeric price", func(d *domain.Domain) { d.Price = "ten" }, "price"},
		{"bad purchase price", func(d *domain.Domain) { d.PurchasePrice = "x" }, "purchasePrice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base
			tt.edit(&d)
			err := d.Validate()
			require.ErrorIs(t, err, domain.ErrInvalid)

			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	require.NoError(t, base.Validate())
}

func TestDomainCheckAcceptsLegacyNames(t *testing.T) {
	t.Parallel()

	d := domain.Domain{Name: "intranet", RenewalDate: "2026-01-01", Price: "10"}
	require.NoError(t, d.Check())
	require.ErrorIs(t, d.Validate(), domain.ErrInvalid)

	d.Price = "ten"
	require.ErrorIs(t, d.Check(), domain.ErrInvalid)
}

func TestProviderNormalizeAddsScheme(t *testing.T) {
	t.Parallel()

	p := domain.Provider{Name: "Namecheap", URL: " www.namecheap.com "}
	p.Normalize()
	assert.Equal(t, "https://www.namecheap.com", p.URL)
	require.NoError(t, p.Validate())

	p = domain.Provider{Name: "Namecheap", URL: "http://example.com"}
	p.Normalize()
	assert.Equal(t, "http://example.com", p.URL)
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "example.com", domain.NormalizeName("  https://Example.com/path?q=1 "))
	assert.Equal(t, "example.co.uk", domain.NormalizeName("example.co.uk."))
}

func TestProviderCodec(t *testing.T) {
	t.Parallel()

	var p domain.Provider
	require.NoError(t, json.Unmarshal([]byte(
		`{"id":"1","name":"Namecheap","url":"https://www.namecheap.com","username":"me","password":"pw","userId":42,"color":"#f60"}`,
	), &p))

	assert.Equal(t, "42", p.AccountID)
	require.NoError(t, p.Validate())

	red := p.Redacted()
	out, err := json.Marshal(red)
	require.NoError(t, err)
	assert.False(t, gjson.GetBytes(out, "password").Exists())
	assert.Equal(t, "#f60", gjson.GetBytes(out, "color").String())

	p.URL = "ftp://nope"
	require.ErrorIs(t, p.Validate(), domain.ErrInvalid)
}
