package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Ed25519Signer mints EdDSA tokens. The vault never issues tokens in
// production; this exists for local development and for tests that need a
// token the KeySetVerifier accepts.
type Ed25519Signer struct {
	kid string
	key ed25519.PrivateKey
}

// NewEd25519Signer generates a fresh keypair under kid.
func NewEd25519Signer(kid string) (*Ed25519Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("jwtx: generate Ed25519 key: %w", err)
	}
	return &Ed25519Signer{kid: kid, key: priv}, nil
}

func (s *Ed25519Signer) KID() string { return s.kid }

// Sign serialises claims into a compact JWT with the kid header set.
func (s *Ed25519Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

// PublicJWK returns the JWK to publish for this signer.
func (s *Ed25519Signer) PublicJWK() JWK {
	return NewEd25519JWK(s.kid, s.key.Public().(ed25519.PublicKey))
}
