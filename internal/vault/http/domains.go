package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/domainvault/internal/vault/coordinator"
	"github.com/aussiebroadwan/domainvault/internal/vault/datemath"
	"github.com/aussiebroadwan/domainvault/internal/vault/derive"
	"github.com/aussiebroadwan/domainvault/internal/vault/domain"
	"github.com/aussiebroadwan/domainvault/pkg/httpx"
	"github.com/aussiebroadwan/domainvault/pkg/slogx"
)

type DomainsHandler struct {
	Coord    *coordinator.Coordinator
	Clock    datemath.Clock
	SyncWait time.Duration
}

type domainListResponse struct {
	Domains []domain.DomainView `json:"domains"`
}

type domainWriteResponse struct {
	Domain domain.DomainView `json:"domain"`
	syncStatus
}

type deleteResponse struct {
	ID string `json:"id"`
	syncStatus
}

// HandleList lists domains, filtered by ?q= when given.
//
//	@Summary	List domains
//	@Tags		Domains
//	@Produce	json
//	@Param		q	query		string	false	"Case-insensitive name or provider filter"
//	@Success	200	{object}	domainListResponse
//	@Router		/v1/domains [get]
func (h *DomainsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	domains := h.Coord.Portfolio().ListDomains()
	if q := r.URL.Query().Get("q"); q != "" {
		domains = derive.Search(domains, q)
	}
	views := derive.Annotate(domains, h.Clock.Now())
	if views == nil {
		views = []domain.DomainView{}
	}
	httpx.WriteJSON(w, http.StatusOK, domainListResponse{Domains: views})
}

// HandleCreate handles POST /v1/domains
//
//	@Summary	Create a domain
//	@Tags		Domains
//	@Accept		json
//	@Produce	json
//	@Param		body	body		domain.Domain	true	"Domain"
//	@Success	201		{object}	domainWriteResponse
//	@Failure	400		{object}	httpx.ErrorResponse	"Bad Request"
//	@Router		/v1/domains [post]
func (h *DomainsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var d domain.Domain
	if err := httpx.DecodeJSON(r, &d); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	d.ID = ""
	h.save(w, r, d, http.StatusCreated)
}

// HandleUpdate merges the body over the stored domain.
func (h *DomainsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var d domain.Domain
	if err := httpx.DecodeJSON(r, &d); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	d.ID = r.PathValue("id")
	h.save(w, r, d, http.StatusOK)
}

func (h *DomainsHandler) save(w http.ResponseWriter, r *http.Request, d domain.Domain, code int) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	write, err := h.Coord.SaveDomain(ctx, d)
	if err != nil {
		writeCoordError(w, log, err)
		return
	}

	res, st := settle(ctx, h.SyncWait, write)
	rec := write.Record
	if res.ID != "" {
		rec.ID = res.ID
	}
	httpx.WriteJSON(w, code, domainWriteResponse{
		Domain:     derive.View(rec, h.Clock.Now()),
		syncStatus: st,
	})
}

func (h *DomainsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	write, err := h.Coord.DeleteDomain(ctx, r.PathValue("id"))
	if err != nil {
		writeCoordError(w, log, err)
		return
	}

	res, st := settle(ctx, h.SyncWait, write)
	id := res.ID
	if id == "" {
		id = write.Record.ID
	}
	httpx.WriteJSON(w, http.StatusOK, deleteResponse{ID: id, syncStatus: st})
}
