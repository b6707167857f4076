package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/net/publicsuffix"

	"github.com/aussiebroadwan/domainvault/internal/vault/datemath"
)

var ErrInvalid = errors.New("domain: invalid record")

// ValidationError names the field that failed. It matches ErrInvalid.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("domain: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NormalizeName lowercases a domain name and strips the decorations users
// tend to paste in: a scheme, a path and a trailing dot.
func NormalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if i := strings.Index(n, "://"); i >= 0 {
		n = n[i+3:]
	}
	if i := strings.IndexAny(n, "/?#"); i >= 0 {
		n = n[:i]
	}
	return strings.TrimSuffix(n, ".")
}

// CheckName rejects names that cannot be registered: empty labels,
// whitespace, or a bare public suffix such as "com" or "co.uk".
func CheckName(name string) error {
	if name == "" {
		return invalid("name", "required")
	}
	if strings.ContainsAny(name, " \t\r\n") {
		return invalid("name", "contains whitespace")
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(name); err != nil {
		return invalid("name", err.Error())
	}
	return nil
}

// ParseAmount reads a money string. Amounts must be non-negative.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("must not be negative")
	}
	return d, nil
}

// Normalize canonicalises d in place.
func (d *Domain) Normalize() {
	d.Name = NormalizeName(d.Name)
	d.Provider = strings.TrimSpace(d.Provider)
	d.Price = strings.TrimSpace(d.Price)
	d.PurchasePrice = strings.TrimSpace(d.PurchasePrice)
	if key, err := datemath.DayKey(d.RenewalDate); err == nil {
		d.RenewalDate = key
	}
	if key, err := datemath.DayKey(d.PurchaseDate); err == nil {
		d.PurchaseDate = key
	}
}

// Check rejects only a malformed domain: no name, an unreadable renewal
// date or an unreadable price. Stored records are held to this.
func (d Domain) Check() error {
	if d.Name == "" {
		return invalid("name", "required")
	}
	if _, err := datemath.Parse(d.RenewalDate); err != nil {
		return invalid("renewalDate", "expected YYYY-MM-DD")
	}
	if _, err := decimal.NewFromString(d.Price); err != nil {
		return invalid("price", err.Error())
	}
	return nil
}

// Validate checks a normalised domain before it is written.
func (d Domain) Validate() error {
	if err := d.Check(); err != nil {
		return err
	}
	if err := CheckName(d.Name); err != nil {
		return err
	}
	if _, err := ParseAmount(d.Price); err != nil {
		return invalid("price", err.Error())
	}
	if d.PurchasePrice != "" {
		if _, err := ParseAmount(d.PurchasePrice); err != nil {
			return invalid("purchasePrice", err.Error())
		}
	}
	if d.PurchaseDate != "" {
		if _, err := datemath.Parse(d.PurchaseDate); err != nil {
			return invalid("purchaseDate", "expected YYYY-MM-DD")
		}
	}
	return nil
}

// Normalize canonicalises p in place. A URL without a scheme is taken
// as https.
func (p *Provider) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.URL = strings.TrimSpace(p.URL)
	p.Username = strings.TrimSpace(p.Username)
	if p.URL != "" && !strings.Contains(p.URL, "://") {
		p.URL = "https://" + p.URL
	}
}

// Check rejects only a provider with no name.
func (p Provider) Check() error {
	if p.Name == "" {
		return invalid("name", "required")
	}
	return nil
}

// Validate checks a normalised provider before it is written.
func (p Provider) Validate() error {
	if err := p.Check(); err != nil {
		return err
	}
	if p.URL != "" {
		u, err := url.Parse(p.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalid("url", "expected an http(s) URL")
		}
	}
	return nil
}
