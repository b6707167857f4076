package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/domainvault/internal/vault/coordinator"
	"github.com/aussiebroadwan/domainvault/internal/vault/datemath"
	"github.com/aussiebroadwan/domainvault/internal/vault/derive"
	"github.com/aussiebroadwan/domainvault/internal/vault/domain"
	"github.com/aussiebroadwan/domainvault/pkg/httpx"
	"github.com/aussiebroadwan/domainvault/pkg/slogx"
)

type ProvidersHandler struct {
	Coord    *coordinator.Coordinator
	Clock    datemath.Clock
	SyncWait time.Duration
}

type providerListResponse struct {
	Providers []domain.Provider `json:"providers"`
}

type providerWriteResponse struct {
	Provider domain.Provider `json:"provider"`
	syncStatus
}

// confirmResponse asks the caller to repeat a delete with ?confirm=true.
type confirmResponse struct {
	httpx.ErrorResponse
	Prompt      string `json:"prompt"`
	DomainCount int    `json:"domainCount"`
}

type spendResponse struct {
	Provider string `json:"provider"`
	Total    string `json:"total"`
}

type credentialsResponse struct {
	Username  string `json:"username,omitempty"`
	Password  string `json:"password,omitempty"`
	AccountID string `json:"userId,omitempty"`
}

// HandleList lists providers with their passwords removed.
func (h *ProvidersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	provs := h.Coord.Portfolio().ListProviders()
	out := make([]domain.Provider, 0, len(provs))
	for _, p := range provs {
		out = append(out, p.Redacted())
	}
	httpx.WriteJSON(w, http.StatusOK, providerListResponse{Providers: out})
}

func (h *ProvidersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var p domain.Provider
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	p.ID = ""
	h.save(w, r, p, http.StatusCreated)
}

// HandleUpdate merges the body over the stored provider. A body without a
// password keeps the stored one.
func (h *ProvidersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var p domain.Provider
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	p.ID = r.PathValue("id")
	h.save(w, r, p, http.StatusOK)
}

func (h *ProvidersHandler) save(w http.ResponseWriter, r *http.Request, p domain.Provider, code int) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	write, err := h.Coord.SaveProvider(ctx, p)
	if err != nil {
		writeCoordError(w, log, err)
		return
	}

	res, st := settle(ctx, h.SyncWait, write)
	rec := write.Record.Redacted()
	if res.ID != "" {
		rec.ID = res.ID
	}
	httpx.WriteJSON(w, code, providerWriteResponse{Provider: rec, syncStatus: st})
}

// HandleDelete removes a provider. Without ?confirm=true it answers 409
// with the prompt the caller should show.
//
//	@Summary	Delete a provider
//	@Tags		Providers
//	@Produce	json
//	@Param		id		path		string	true	"Provider ID"
//	@Param		confirm	query		bool	false	"Confirm the deletion"
//	@Success	200		{object}	deleteResponse
//	@Failure	404		{object}	httpx.ErrorResponse	"Not Found"
//	@Failure	409		{object}	confirmResponse		"Confirmation required"
//	@Router		/v1/providers/{id} [delete]
func (h *ProvidersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	id := r.PathValue("id")

	confirm := func(string) bool {
		return r.URL.Query().Get("confirm") == "true"
	}

	write, err := h.Coord.DeleteProvider(ctx, id, confirm)
	var declined *coordinator.DeclinedError
	if errors.As(err, &declined) {
		httpx.WriteJSON(w, http.StatusConflict, confirmResponse{
			ErrorResponse: httpx.ErrorResponse{
				Error:            "confirmation_required",
				ErrorDescription: declined.Prompt,
			},
			Prompt:      declined.Prompt,
			DomainCount: declined.Count,
		})
		return
	}
	if err != nil {
		writeCoordError(w, log, err)
		return
	}

	res, st := settle(ctx, h.SyncWait, write)
	rid := res.ID
	if rid == "" {
		rid = write.Record.ID
	}
	httpx.WriteJSON(w, http.StatusOK, deleteResponse{ID: rid, syncStatus: st})
}

// HandleDomains lists the domains registered with a provider.
func (h *ProvidersHandler) HandleDomains(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(w, r)
	if !ok {
		return
	}
	views := derive.Annotate(h.Coord.Portfolio().DomainsForProvider(p.Name), h.Clock.Now())
	if views == nil {
		views = []domain.DomainView{}
	}
	httpx.WriteJSON(w, http.StatusOK, domainListResponse{Domains: views})
}

func (h *ProvidersHandler) HandleSpend(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(w, r)
	if !ok {
		return
	}
	total := derive.ProviderSpend(h.Coord.Portfolio().ListDomains(), p.Name)
	httpx.WriteJSON(w, http.StatusOK, spendResponse{Provider: p.Name, Total: total})
}

func (h *ProvidersHandler) HandleCredentials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	creds, err := h.Coord.ProviderCredentials(r.PathValue("id"))
	if err != nil {
		writeCoordError(w, log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, credentialsResponse{
		Username:  creds.Username,
		Password:  creds.Password,
		AccountID: creds.AccountID,
	})
}

func (h *ProvidersHandler) provider(w http.ResponseWriter, r *http.Request) (domain.Provider, bool) {
	p, ok := h.Coord.Portfolio().Provider(r.PathValue("id"))
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "Provider not found")
	}
	return p, ok
}
