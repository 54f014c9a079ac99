package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/GrantWise/factory-board-sub001/internal/common"
	"github.com/GrantWise/factory-board-sub001/internal/models/dtos"
)

// ListConflicts handles GET /api/v1/erp/order-links/conflicts?connection_id=
func (h *Handlers) ListConflicts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		connectionID := strings.TrimSpace(r.URL.Query().Get("connection_id"))
		links, err := h.deps.Services.OrderLinks.GetConflicts(r.Context(), connectionID)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Conflicted order links", orderLinkResponses(links))
	}
}

// ResolveConflict handles POST /api/v1/erp/order-links/{id}/resolve
func (h *Handlers) ResolveConflict() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.ResolveConflictRequest
		if err := decodeJSON(r, &req, false); err != nil {
			badRequest(w, initTime, "", "Invalid request body: "+err.Error())
			return
		}

		link, err := h.deps.Services.OrderLinks.ResolveConflict(r.Context(), chi.URLParam(r, "id"), req)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Conflict resolved", orderLinkResponse(link))
	}
}
