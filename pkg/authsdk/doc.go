// Package authsdk is a small client for the external auth service that
// issues the identity tokens the vault accepts. The vault only needs the
// public half of that service: its JWKS and its health endpoints.
package authsdk
