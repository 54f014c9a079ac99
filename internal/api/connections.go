package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/GrantWise/factory-board-sub001/internal/common"
	"github.com/GrantWise/factory-board-sub001/internal/constants"
	"github.com/GrantWise/factory-board-sub001/internal/models/dtos"
	"github.com/GrantWise/factory-board-sub001/internal/services"
)

// ListConnections handles GET /api/v1/erp/connections
func (h *Handlers) ListConnections() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		q := r.URL.Query()

		isActive, err := queryBool(r, "is_active")
		if err != nil {
			badRequest(w, initTime, "is_active", "is_active must be true or false")
			return
		}

		filter := dtos.ConnectionFilter{
			SystemType:   constants.SystemType(strings.TrimSpace(q.Get("system_type"))),
			IsActive:     isActive,
			NameContains: strings.TrimSpace(q.Get("name")),
			Limit:        common.ParseLimit(q.Get("limit"), 0),
			Offset:       common.ParseOffset(q.Get("offset")),
		}

		conns, err := h.deps.Services.Connections.FindAll(r.Context(), filter)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		out := make([]dtos.ConnectionResponse, 0, len(conns))
		for i := range conns {
			out = append(out, h.deps.Services.Connections.ToResponse(&conns[i]))
		}
		common.RespondSuccess(w, initTime, "Connections retrieved", out)
	}
}

// CreateConnection handles POST /api/v1/erp/connections
func (h *Handlers) CreateConnection() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.CreateConnectionRequest
		if err := decodeJSON(r, &req, false); err != nil {
			badRequest(w, initTime, "", "Invalid request body: "+err.Error())
			return
		}

		conn, err := h.deps.Services.Connections.Create(r.Context(), req)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Connection created",
			h.deps.Services.Connections.ToResponse(conn), http.StatusCreated)
	}
}

// GetConnection handles GET /api/v1/erp/connections/{id}
func (h *Handlers) GetConnection() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		conn, err := h.deps.Services.Connections.FindByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Connection retrieved", h.deps.Services.Connections.ToResponse(conn))
	}
}

// UpdateConnection handles PUT /api/v1/erp/connections/{id}
func (h *Handlers) UpdateConnection() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.UpdateConnectionRequest
		if err := decodeJSON(r, &req, false); err != nil {
			badRequest(w, initTime, "", "Invalid request body: "+err.Error())
			return
		}

		conn, err := h.deps.Services.Connections.Update(r.Context(), chi.URLParam(r, "id"), req)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Connection updated", h.deps.Services.Connections.ToResponse(conn))
	}
}

// DeleteConnection handles DELETE /api/v1/erp/connections/{id}
func (h *Handlers) DeleteConnection() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		id := chi.URLParam(r, "id")
		if err := h.deps.Services.Connections.Delete(r.Context(), id); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Connection deleted", map[string]string{"id": id})
	}
}

// TestConnection handles POST /api/v1/erp/connections/{id}/test
func (h *Handlers) TestConnection() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		result, err := h.deps.Services.Connections.Test(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, result.Message, result)
	}
}

// AuditConnectionConfig handles POST /api/v1/erp/connections/audit.
// The body is a bare connection_config document.
func (h *Handlers) AuditConnectionConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var raw json.RawMessage
		if err := decodeJSON(r, &raw, false); err != nil {
			badRequest(w, initTime, "connection_config", "Invalid request body: "+err.Error())
			return
		}

		cfg, err := dtos.ParseConnectionConfig(raw)
		if err != nil {
			var fe *dtos.FieldError
			if errors.As(err, &fe) {
				badRequest(w, initTime, fe.Field, fe.Error())
				return
			}
			badRequest(w, initTime, "connection_config", err.Error())
			return
		}

		common.RespondSuccess(w, initTime, "Security audit complete", services.SecurityAudit(cfg))
	}
}

// GetConnectionTemplate handles GET /api/v1/erp/connections/templates/{systemType}
func (h *Handlers) GetConnectionTemplate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		systemType := constants.SystemType(chi.URLParam(r, "systemType"))
		tmpl, err := h.deps.Services.Connections.TemplateFor(systemType)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Template retrieved", tmpl)
	}
}
