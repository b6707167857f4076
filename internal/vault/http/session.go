package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/domainvault/internal/vault/coordinator"
	"github.com/aussiebroadwan/domainvault/internal/vault/session"
	"github.com/aussiebroadwan/domainvault/pkg/httpx"
	"github.com/aussiebroadwan/domainvault/pkg/slogx"
)

type SessionHandler struct {
	Gate *session.Gate
}

type sessionResponse struct {
	session.Status
	Warning string `json:"warning,omitempty"`
}

func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, sessionResponse{Status: h.Gate.Current()})
}

// HandleSignIn signs in as the subject of the verified bearer token. When
// the remote store cannot be reached the sign-in still succeeds, working
// from the local cache, and the response carries a warning.
//
//	@Summary	Sign in with a bearer token
//	@Tags		Session
//	@Produce	json
//	@Success	200	{object}	sessionResponse
//	@Failure	401	{object}	httpx.ErrorResponse	"Unauthorized"
//	@Failure	403	{object}	httpx.ErrorResponse	"Forbidden - requires the session scope"
//	@Failure	501	{object}	httpx.ErrorResponse	"Sign-in disabled"
//	@Security	BearerAuth
//	@Router		/v1/session [post]
func (h *SessionHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	claims, ok := httpx.ClaimsFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing claims")
		return
	}
	id, err := session.IdentityFromClaims(claims)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", err.Error())
		return
	}

	var warning string
	if err := h.Gate.SignIn(ctx, id); err != nil {
		if !errors.Is(err, coordinator.ErrRemoteUnavailable) {
			log.Error("sign-in failed", "error", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Sign-in failed")
			return
		}
		warning = err.Error()
	}

	httpx.WriteJSON(w, http.StatusOK, sessionResponse{Status: h.Gate.Current(), Warning: warning})
}

// HandleSignOut signs out and reloads the anonymous portfolio from the
// local cache.
func (h *SessionHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	h.Gate.SignOut(ctx)
	var warning string
	if err := h.Gate.Start(ctx); err != nil {
		log.Error("local hydration after sign-out failed", "error", err)
		warning = err.Error()
	}
	httpx.WriteJSON(w, http.StatusOK, sessionResponse{Status: h.Gate.Current(), Warning: warning})
}
