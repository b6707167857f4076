package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/domainvault/internal/vault/coordinator"
	"github.com/aussiebroadwan/domainvault/pkg/httpx"
)

// syncStatus is embedded in every write response.
type syncStatus struct {
	Synced  bool   `json:"synced"`
	Warning string `json:"warning,omitempty"`
}

// settle waits up to limit for the remote half of a write.
func settle[T any](ctx context.Context, limit time.Duration, w *coordinator.Write[T]) (coordinator.SyncResult, syncStatus) {
	if limit <= 0 {
		limit = DefaultSyncWait
	}
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	res := w.Wait(ctx)
	st := syncStatus{Synced: res.Synced}
	switch {
	case res.Warning == nil:
	case errors.Is(res.Warning, context.DeadlineExceeded), errors.Is(res.Warning, context.Canceled):
		st.Warning = "remote sync still in progress"
	default:
		st.Warning = res.Warning.Error()
	}
	return res, st
}

// writeCoordError maps coordinator errors to HTTP responses.
func writeCoordError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, coordinator.ErrInvalid):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, coordinator.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, coordinator.ErrDeclined):
		httpx.WriteError(w, http.StatusConflict, "confirmation_required", err.Error())
	default:
		log.Error("request failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
	}
}

// queryLimit reads ?limit=, returning 0 when absent.
func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New("limit must be a positive integer")
	}
	return n, nil
}
