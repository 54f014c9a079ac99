package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/GrantWise/factory-board-sub001/internal/common"
	"github.com/GrantWise/factory-board-sub001/internal/constants"
	"github.com/GrantWise/factory-board-sub001/internal/models/dtos"
)

// GetImportStats handles GET /api/v1/erp/imports/stats?connection_id=&days=
func (h *Handlers) GetImportStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		days, err := queryInt(r, "days", constants.DefaultStatsWindowDays)
		if err != nil || days <= 0 {
			badRequest(w, initTime, "days", "days must be a positive integer")
			return
		}

		connectionID := strings.TrimSpace(r.URL.Query().Get("connection_id"))
		stats, err := h.deps.Services.Imports.GetImportStats(r.Context(), connectionID, days)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Import statistics", stats)
	}
}

// ListRunningImports handles GET /api/v1/erp/imports/running
func (h *Handlers) ListRunningImports() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		logs, err := h.deps.Services.Imports.GetRunningImports(r.Context())
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Running imports", importLogResponses(logs))
	}
}

// CancelImport handles POST /api/v1/erp/imports/{id}/cancel
func (h *Handlers) CancelImport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.CancelImportRequest
		if err := decodeJSON(r, &req, false); err != nil {
			badRequest(w, initTime, "reason", "Invalid request body: "+err.Error())
			return
		}

		log, err := h.deps.Services.Imports.CancelImport(r.Context(), chi.URLParam(r, "id"), req.Reason)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Import cancelled", importLogResponse(log))
	}
}

// GetImportDetails handles GET /api/v1/erp/imports/{id}/details?action=&limit=&offset=
func (h *Handlers) GetImportDetails() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		q := r.URL.Query()

		filter := dtos.DetailFilter{
			Action: constants.DetailAction(strings.TrimSpace(q.Get("action"))),
			Limit:  common.ParseLimit(q.Get("limit"), 0),
			Offset: common.ParseOffset(q.Get("offset")),
		}

		details, err := h.deps.Services.Imports.GetImportDetails(r.Context(), chi.URLParam(r, "id"), filter)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Import details", importDetailResponses(details))
	}
}
