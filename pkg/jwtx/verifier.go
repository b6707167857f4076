package jwtx

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

var (
	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrUnknownKID   = errors.New("jwtx: unknown kid")
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrAudience     = errors.New("jwtx: audience mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// KeySetVerifier checks EdDSA and ES256 tokens against a KeySet. The key
// type found under the token's kid must match the token's algorithm.
type KeySetVerifier struct {
	Keys     *KeySet
	Issuer   string
	Audience []string
	Leeway   time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

// NewVerifier returns a verifier bound to keys.
func NewVerifier(keys *KeySet, issuer string, audience []string) *KeySetVerifier {
	return &KeySetVerifier{
		Keys:     keys,
		Issuer:   issuer,
		Audience: audience,
		Leeway:   30 * time.Second,
	}
}

func (v *KeySetVerifier) Verify(raw string) (Claims, error) {
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg(), jwt.SigningMethodES256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	token, err := parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrUnknownKID
		}

		pub, err := v.Keys.Get(kid)
		if err != nil {
			return nil, fmt.Errorf("%w %q", ErrUnknownKID, kid)
		}

		switch key := pub.(type) {
		case ed25519.PublicKey:
			if t.Method.Alg() != jwt.SigningMethodEdDSA.Alg() {
				return nil, fmt.Errorf("jwtx: kid %q is Ed25519 but token uses %s", kid, t.Method.Alg())
			}
			return key, nil
		case *ecdsa.PublicKey:
			if t.Method.Alg() != jwt.SigningMethodES256.Alg() {
				return nil, fmt.Errorf("jwtx: kid %q is P-256 but token uses %s", kid, t.Method.Alg())
			}
			return key, nil
		default:
			return nil, fmt.Errorf("jwtx: unsupported key type %T", pub)
		}
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrInvalidClaim
	}

	if err := claims.ValidateIssuer(v.Issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateAudience(v.Audience); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateTimes(now(), v.Leeway); err != nil {
		return Claims{}, err
	}

	return *claims, nil
}
