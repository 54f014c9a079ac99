package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/GrantWise/factory-board-sub001/internal/models/dtos"
	gormModels "github.com/GrantWise/factory-board-sub001/internal/models/gorm"
)

// maxBodyBytes bounds admin request bodies
const maxBodyBytes = 1 << 20

type Handlers struct {
	deps *Dependencies
}

// NewHandlers creates a new handlers instance with injected dependencies
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		deps: deps,
	}
}

// decodeJSON reads a JSON body into dst. An empty body is allowed when
// optional is true and leaves dst untouched.
func decodeJSON(r *http.Request, dst interface{}, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	return nil
}

// queryBool parses an optional boolean query parameter
func queryBool(r *http.Request, key string) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// queryInt parses an optional integer query parameter, def when absent
func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func orderLinkResponse(link *gormModels.OrderLink) dtos.OrderLinkResponse {
	resp := dtos.OrderLinkResponse{
		ID:                link.ID,
		OrderID:           link.OrderID,
		ConnectionID:      link.ConnectionID,
		ExternalID:        link.ExternalID,
		ExternalSystem:    link.ExternalSystem,
		ExternalUpdatedAt: link.ExternalUpdatedAt,
		SyncStatus:        link.SyncStatus,
		LastSyncAt:        link.LastSyncAt,
		CreatedAt:         link.CreatedAt,
		UpdatedAt:         link.UpdatedAt,
	}
	if !link.ConflictData.IsZero() {
		payload := link.ConflictData
		resp.ConflictData = &payload
	}
	return resp
}

func orderLinkResponses(links []gormModels.OrderLink) []dtos.OrderLinkResponse {
	out := make([]dtos.OrderLinkResponse, 0, len(links))
	for i := range links {
		out = append(out, orderLinkResponse(&links[i]))
	}
	return out
}

func importLogResponse(log *gormModels.ImportLog) dtos.ImportLogResponse {
	return dtos.ImportLogResponse{
		ID:                log.ID,
		ConnectionID:      log.ConnectionID,
		ImportType:        log.ImportType,
		Status:            log.Status,
		StartedAt:         log.StartedAt,
		CompletedAt:       log.CompletedAt,
		TotalRecords:      log.TotalRecords,
		ProcessedRecords:  log.ProcessedRecords,
		SuccessfulRecords: log.SuccessfulRecords,
		FailedRecords:     log.FailedRecords,
		ErrorSummary:      log.ErrorSummary,
		InitiatedBy:       log.InitiatedBy,
		Metadata:          log.Metadata.Clone(),
	}
}

func importLogResponses(logs []gormModels.ImportLog) []dtos.ImportLogResponse {
	out := make([]dtos.ImportLogResponse, 0, len(logs))
	for i := range logs {
		out = append(out, importLogResponse(&logs[i]))
	}
	return out
}

func importDetailResponses(details []gormModels.ImportDetail) []dtos.ImportDetailResponse {
	out := make([]dtos.ImportDetailResponse, 0, len(details))
	for _, d := range details {
		item := dtos.ImportDetailResponse{
			ID:           d.ID,
			ImportLogID:  d.ImportLogID,
			ExternalID:   d.ExternalID,
			Action:       d.Action,
			OrderID:      d.OrderID,
			ErrorMessage: d.ErrorMessage,
			CreatedAt:    d.CreatedAt,
		}
		if len(d.RawData) > 0 {
			item.RawData = json.RawMessage(d.RawData)
		}
		out = append(out, item)
	}
	return out
}
