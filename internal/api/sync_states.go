package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/GrantWise/factory-board-sub001/internal/common"
	"github.com/GrantWise/factory-board-sub001/internal/models/dtos"
)

// GetSyncState handles GET /api/v1/erp/sync-states/{connectionId}
func (h *Handlers) GetSyncState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		state, err := h.deps.Services.SyncStates.Get(r.Context(), chi.URLParam(r, "connectionId"))
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Sync state retrieved", h.deps.Services.SyncStates.ToResponse(state))
	}
}

// GetSyncHealth handles GET /api/v1/erp/sync-states/{connectionId}/health
func (h *Handlers) GetSyncHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		connectionID := chi.URLParam(r, "connectionId")
		health, err := h.deps.Services.SyncStates.HealthOf(r.Context(), connectionID)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Sync health computed", map[string]interface{}{
			"connection_id": connectionID,
			"health":        health,
		})
	}
}

// ListSyncAttention handles GET /api/v1/erp/sync-states/attention
func (h *Handlers) ListSyncAttention() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		items, err := h.deps.Services.SyncStates.NeedingAttention(r.Context())
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		if items == nil {
			items = []dtos.SyncAttentionItem{}
		}
		common.RespondSuccess(w, initTime, "Sync states needing attention", items)
	}
}

// ForceFullSync handles POST /api/v1/erp/sync-states/{connectionId}/force-full-sync
func (h *Handlers) ForceFullSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.ForceFullSyncRequest
		if err := decodeJSON(r, &req, false); err != nil {
			badRequest(w, initTime, "reason", "Invalid request body: "+err.Error())
			return
		}

		state, err := h.deps.Services.SyncStates.ForceFullSync(r.Context(), chi.URLParam(r, "connectionId"), req.Reason)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Full sync requested", h.deps.Services.SyncStates.ToResponse(state))
	}
}

// ResetSyncState handles POST /api/v1/erp/sync-states/{connectionId}/reset
func (h *Handlers) ResetSyncState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.ResetSyncStateRequest
		if err := decodeJSON(r, &req, true); err != nil {
			badRequest(w, initTime, "reason", "Invalid request body: "+err.Error())
			return
		}

		state, err := h.deps.Services.SyncStates.Reset(r.Context(), chi.URLParam(r, "connectionId"), req.Reason)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Sync state reset", h.deps.Services.SyncStates.ToResponse(state))
	}
}
