package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/GrantWise/factory-board-sub001/internal/constants"
	"github.com/GrantWise/factory-board-sub001/internal/db/repositories"
	"github.com/GrantWise/factory-board-sub001/internal/logging"
	"github.com/GrantWise/factory-board-sub001/internal/metrics"
	"github.com/GrantWise/factory-board-sub001/internal/models"
	"github.com/GrantWise/factory-board-sub001/internal/models/dtos"
	gormModels "github.com/GrantWise/factory-board-sub001/internal/models/gorm"
)

// OrderLookup answers whether a local manufacturing order exists. The order
// store belongs to the planning board; links only reference it.
type OrderLookup interface {
	Exists(ctx context.Context, orderID int64) (bool, error)
}

// OrderLinkService maps external order records to local manufacturing orders
// and owns the link status machine and conflict lifecycle
type OrderLinkService struct {
	repo        *repositories.OrderLinkRepo
	connections *repositories.ERPConnectionRepo
	orders      OrderLookup
	metrics     *metrics.MetricsRegistry
	validate    *validator.Validate

	// Now is the clock used for every timestamp the service writes
	Now func() time.Time
}

// NewOrderLinkService builds the service. orders may be nil, in which case
// local order ids are not checked on create.
func NewOrderLinkService(repo *repositories.OrderLinkRepo, connections *repositories.ERPConnectionRepo, orders OrderLookup, metricsReg *metrics.MetricsRegistry) *OrderLinkService {
	return &OrderLinkService{
		repo:        repo,
		connections: connections,
		orders:      orders,
		metrics:     metricsReg,
		validate:    newValidator(),
		Now:         time.Now,
	}
}

func (s *OrderLinkService) now() time.Time {
	return s.Now().UTC()
}

// Create links an external record to a local order. The (external_id,
// connection_id) pair may only be linked once.
func (s *OrderLinkService) Create(ctx context.Context, req dtos.CreateOrderLinkRequest) (*gormModels.OrderLink, error) {
	req.ExternalID = strings.TrimSpace(req.ExternalID)
	if err := validateStruct(s.validate, "", req); err != nil {
		return nil, err
	}

	status := req.SyncStatus
	if status == "" {
		status = constants.LinkStatusPending
	}
	if !status.Valid() {
		return nil, invalidLinkStatus(status)
	}
	if status == constants.LinkStatusConflict {
		return nil, validationError("sync_status", "a new link cannot start in conflict; use markConflict")
	}

	conn, err := s.connections.GetByID(ctx, req.ConnectionID)
	if err != nil {
		return nil, storageError("failed to load connection", err)
	}
	if conn == nil {
		return nil, notFound("connection", req.ConnectionID)
	}

	if s.orders != nil {
		exists, err := s.orders.Exists(ctx, req.OrderID)
		if err != nil {
			return nil, storageError("failed to look up manufacturing order", err)
		}
		if !exists {
			return nil, notFound("manufacturing order", fmt.Sprintf("%d", req.OrderID))
		}
	}

	now := s.now()
	link := &gormModels.OrderLink{
		OrderID:        req.OrderID,
		ConnectionID:   req.ConnectionID,
		ExternalID:     req.ExternalID,
		ExternalSystem: strings.TrimSpace(req.ExternalSystem),
		SyncStatus:     status,
		LastSyncAt:     &now,
	}
	if link.ExternalSystem == "" {
		link.ExternalSystem = string(conn.SystemType)
	}
	if req.ExternalUpdatedAt != nil {
		ts := req.ExternalUpdatedAt.UTC()
		link.ExternalUpdatedAt = &ts
	}

	err = s.repo.Transaction(ctx, func(repo *repositories.OrderLinkRepo) error {
		existing, err := repo.GetByExternalID(ctx, link.ExternalID, link.ConnectionID)
		if err != nil {
			return storageError("failed to check existing link", err)
		}
		if existing != nil {
			return duplicateExternalID(link.ExternalID, link.ConnectionID)
		}
		if err := repo.Create(ctx, link); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return duplicateExternalID(link.ExternalID, link.ConnectionID)
			}
			return storageError("failed to create order link", err)
		}
		return nil
	})
	if err != nil {
		return nil, passThrough("failed to create order link", err)
	}

	logging.Info("Order link created",
		"link_id", link.ID,
		"connection_id", link.ConnectionID,
		"external_id", link.ExternalID,
		"order_id", link.OrderID,
	)
	return link, nil
}

func (s *OrderLinkService) FindByID(ctx context.Context, id string) (*gormModels.OrderLink, error) {
	link, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storageError("failed to load order link", err)
	}
	if link == nil {
		return nil, notFound("order link", id)
	}
	return link, nil
}

func (s *OrderLinkService) FindByExternalID(ctx context.Context, externalID, connectionID string) (*gormModels.OrderLink, error) {
	link, err := s.repo.GetByExternalID(ctx, externalID, connectionID)
	if err != nil {
		return nil, storageError("failed to load order link", err)
	}
	if link == nil {
		return nil, notFound("order link for external id", externalID)
	}
	return link, nil
}

// FindByOrderID returns every link of a local order; an order may be linked from several connections
func (s *OrderLinkService) FindByOrderID(ctx context.Context, orderID int64) ([]gormModels.OrderLink, error) {
	links, err := s.repo.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, storageError("failed to list order links", err)
	}
	return links, nil
}

func (s *OrderLinkService) FindAll(ctx context.Context, filter dtos.OrderLinkFilter) ([]gormModels.OrderLink, error) {
	if filter.SyncStatus != "" && !filter.SyncStatus.Valid() {
		return nil, invalidLinkStatus(filter.SyncStatus)
	}
	filter.Limit = clampLimit(filter.Limit, constants.DefaultNeedingSyncLimit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	links, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, storageError("failed to list order links", err)
	}
	return links, nil
}

// UpdateSyncStatus is the single mutation point for link status. Every call
// stamps last_sync_at; disallowed transitions fail with ErrInvalidTransition.
func (s *OrderLinkService) UpdateSyncStatus(ctx context.Context, id string, status constants.LinkSyncStatus, extra dtos.SyncStatusExtra) (*gormModels.OrderLink, error) {
	if !status.Valid() {
		return nil, invalidLinkStatus(status)
	}
	if extra.Conflict != nil {
		if err := validateStruct(s.validate, "conflict_data", *extra.Conflict); err != nil {
			return nil, err
		}
	}

	now := s.now()
	var out *gormModels.OrderLink

	err := s.repo.Transaction(ctx, func(repo *repositories.OrderLinkRepo) error {
		link, err := repo.GetByID(ctx, id)
		if err != nil {
			return storageError("failed to load order link", err)
		}
		if link == nil {
			return notFound("order link", id)
		}

		if err := s.applyStatus(link, status, extra, now); err != nil {
			return err
		}
		if err := repo.Save(ctx, link); err != nil {
			return storageError("failed to update order link", err)
		}
		out = link
		return nil
	})
	if err != nil {
		return nil, passThrough("failed to update order link", err)
	}

	logging.Info("Order link status updated",
		"link_id", id,
		"connection_id", out.ConnectionID,
		"sync_status", status,
	)
	return out, nil
}

// MarkConflict records a divergence between local and external data and moves the link to conflict
func (s *OrderLinkService) MarkConflict(ctx context.Context, id string, req dtos.MarkConflictRequest) (*gormModels.OrderLink, error) {
	req.ConflictType = strings.TrimSpace(req.ConflictType)
	if req.ConflictType == "" {
		return nil, validationError("conflict_type", "is required")
	}

	link, err := s.UpdateSyncStatus(ctx, id, constants.LinkStatusConflict, dtos.SyncStatusExtra{Conflict: &req})
	if err != nil {
		return nil, err
	}

	s.metrics.ConflictEvent("marked")
	logging.Warn("Order link conflict marked",
		"link_id", id,
		"connection_id", link.ConnectionID,
		"conflict_type", req.ConflictType,
		"fields", link.ConflictData.Fields,
	)
	return link, nil
}

// ResolveConflict settles a link that is exactly in conflict and returns it to
// synced, appending a resolution history row in the same transaction
func (s *OrderLinkService) ResolveConflict(ctx context.Context, id string, req dtos.ResolveConflictRequest) (*gormModels.OrderLink, error) {
	if err := validateStruct(s.validate, "", req); err != nil {
		return nil, err
	}
	if !req.Strategy.Valid() {
		return nil, validationError("resolution_strategy",
			fmt.Sprintf("unsupported value %q (allowed: local_wins, external_wins, merge, manual)", req.Strategy))
	}
	if req.Strategy.NeedsResolvedData() && len(req.ResolvedData) == 0 {
		return nil, validationError("resolved_data", fmt.Sprintf("is required for the %s strategy", req.Strategy))
	}

	now := s.now()
	var out *gormModels.OrderLink

	err := s.repo.Transaction(ctx, func(repo *repositories.OrderLinkRepo) error {
		link, err := repo.GetByID(ctx, id)
		if err != nil {
			return storageError("failed to load order link", err)
		}
		if link == nil {
			return notFound("order link", id)
		}
		if link.SyncStatus != constants.LinkStatusConflict {
			return &ServiceError{
				Code:    constants.ErrCodeLinkNotInConflict,
				Message: fmt.Sprintf("order link %s is %s, only links in conflict can be resolved", id, link.SyncStatus),
			}
		}

		payload := link.ConflictData
		if payload.IsZero() {
			logging.Warn("Conflict link has no readable conflict payload, resolving with an empty one", "link_id", id)
			payload = gormModels.ConflictPayload{ConflictType: "unknown", DetectedAt: &now}
		}

		resolved := req.ResolvedData
		if len(resolved) == 0 {
			switch req.Strategy {
			case constants.ResolutionLocalWins:
				resolved = payload.LocalData
			case constants.ResolutionExternalWins:
				resolved = payload.ExternalData
			}
		}

		payload.SchemaVersion = gormModels.ConflictPayloadVersion
		payload.Status = constants.ConflictResolved
		payload.ResolutionStrategy = req.Strategy
		payload.ResolvedData = resolved
		payload.ResolvedBy = req.ResolvedBy
		payload.ResolvedAt = &now
		if req.Notes != "" {
			payload.Notes = req.Notes
		}

		link.ConflictData = payload
		link.SyncStatus = constants.LinkStatusSynced
		link.LastSyncAt = &now
		if err := repo.Save(ctx, link); err != nil {
			return storageError("failed to update order link", err)
		}

		history := &gormModels.ConflictResolution{
			OrderLinkID:        link.ID,
			ConflictType:       payload.ConflictType,
			ResolutionStrategy: req.Strategy,
			LocalData:          models.JSONB(payload.LocalData),
			ExternalData:       models.JSONB(payload.ExternalData),
			ResolvedData:       models.JSONB(resolved),
			ResolvedBy:         req.ResolvedBy,
			DetectedAt:         payload.DetectedAt,
			ResolvedAt:         now,
		}
		if err := repo.CreateResolution(ctx, history); err != nil {
			return storageError("failed to record conflict resolution", err)
		}

		out = link
		return nil
	})
	if err != nil {
		return nil, passThrough("failed to resolve conflict", err)
	}

	s.metrics.ConflictEvent("resolved")
	logging.Info("Order link conflict resolved",
		"link_id", id,
		"connection_id", out.ConnectionID,
		"resolution_strategy", req.Strategy,
	)
	return out, nil
}

// UpdateExternalTimestamp records the external record's last-modified time without changing status
func (s *OrderLinkService) UpdateExternalTimestamp(ctx context.Context, id string, ts time.Time) (*gormModels.OrderLink, error) {
	if ts.IsZero() {
		return nil, validationError("external_updated_at", "is required")
	}
	utc := ts.UTC()
	var out *gormModels.OrderLink

	err := s.repo.Transaction(ctx, func(repo *repositories.OrderLinkRepo) error {
		link, err := repo.GetByID(ctx, id)
		if err != nil {
			return storageError("failed to load order link", err)
		}
		if link == nil {
			return notFound("order link", id)
		}
		link.ExternalUpdatedAt = &utc
		if err := repo.Save(ctx, link); err != nil {
			return storageError("failed to update order link", err)
		}
		out = link
		return nil
	})
	if err != nil {
		return nil, passThrough("failed to update external timestamp", err)
	}
	return out, nil
}

// GetNeedingSync is the worklist of pending and error links, least recently updated first
func (s *OrderLinkService) GetNeedingSync(ctx context.Context, connectionID string, limit int) ([]gormModels.OrderLink, error) {
	limit = clampLimit(limit, constants.DefaultNeedingSyncLimit)

	links, err := s.repo.ListNeedingSync(ctx, connectionID, limit)
	if err != nil {
		return nil, storageError("failed to list order links needing sync", err)
	}
	return links, nil
}

func (s *OrderLinkService) GetConflicts(ctx context.Context, connectionID string) ([]gormModels.OrderLink, error) {
	links, err := s.repo.ListConflicts(ctx, connectionID)
	if err != nil {
		return nil, storageError("failed to list conflicts", err)
	}
	return links, nil
}

// BulkUpdateSyncStatus moves every link to status in one transaction. A
// missing id or a disallowed transition rolls the whole batch back.
func (s *OrderLinkService) BulkUpdateSyncStatus(ctx context.Context, ids []string, status constants.LinkSyncStatus) (int, error) {
	if !status.Valid() {
		return 0, invalidLinkStatus(status)
	}
	if status == constants.LinkStatusConflict {
		return 0, validationError("sync_status", "links can only enter conflict one at a time with a conflict payload")
	}

	unique := dedupeIDs(ids)
	if len(unique) == 0 {
		return 0, validationError("ids", "at least one link id is required")
	}

	now := s.now()
	err := s.repo.Transaction(ctx, func(repo *repositories.OrderLinkRepo) error {
		links, err := repo.GetByIDs(ctx, unique)
		if err != nil {
			return storageError("failed to load order links", err)
		}
		if len(links) != len(unique) {
			found := make(map[string]bool, len(links))
			for _, l := range links {
				found[l.ID] = true
			}
			var missing []string
			for _, id := range unique {
				if !found[id] {
					missing = append(missing, id)
				}
			}
			return notFound("order link(s)", strings.Join(missing, ", "))
		}

		for i := range links {
			if err := s.applyStatus(&links[i], status, dtos.SyncStatusExtra{}, now); err != nil {
				return err
			}
			if err := repo.Save(ctx, &links[i]); err != nil {
				return storageError("failed to update order link", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, passThrough("failed to bulk update order links", err)
	}

	logging.Info("Order links bulk updated", "count", len(unique), "sync_status", status)
	return len(unique), nil
}

// Delete removes a link unless it carries conflict resolution history
func (s *OrderLinkService) Delete(ctx context.Context, id string) error {
	err := s.repo.Transaction(ctx, func(repo *repositories.OrderLinkRepo) error {
		link, err := repo.GetByID(ctx, id)
		if err != nil {
			return storageError("failed to load order link", err)
		}
		if link == nil {
			return notFound("order link", id)
		}

		count, err := repo.CountResolutions(ctx, id)
		if err != nil {
			return storageError("failed to count conflict resolutions", err)
		}
		if count > 0 {
			return &ServiceError{
				Code:    constants.ErrCodeResolutionHistoryExists,
				Message: fmt.Sprintf("order link %s has %d conflict resolution record(s)", id, count),
			}
		}

		if _, err := repo.Delete(ctx, id); err != nil {
			return storageError("failed to delete order link", err)
		}
		return nil
	})
	if err != nil {
		return passThrough("failed to delete order link", err)
	}

	logging.Info("Order link deleted", "link_id", id)
	return nil
}

// ResolutionHistory lists the settled conflicts of a link, oldest first
func (s *OrderLinkService) ResolutionHistory(ctx context.Context, id string) ([]gormModels.ConflictResolution, error) {
	if _, err := s.FindByID(ctx, id); err != nil {
		return nil, err
	}
	history, err := s.repo.ListResolutions(ctx, id)
	if err != nil {
		return nil, storageError("failed to list conflict resolutions", err)
	}
	return history, nil
}

// applyStatus enforces the transition table and merges optional fields into link
func (s *OrderLinkService) applyStatus(link *gormModels.OrderLink, status constants.LinkSyncStatus, extra dtos.SyncStatusExtra, now time.Time) error {
	if !link.SyncStatus.CanTransitionTo(status) {
		msg := fmt.Sprintf("order link %s cannot move from %s to %s", link.ID, link.SyncStatus, status)
		if link.SyncStatus == constants.LinkStatusConflict && status == constants.LinkStatusSynced {
			msg += "; resolve the conflict instead"
		}
		return &ServiceError{Code: constants.ErrCodeInvalidTransition, Message: msg}
	}

	if extra.Conflict != nil && status != constants.LinkStatusConflict {
		return validationError("conflict_data", "may only be supplied when moving a link to conflict")
	}
	if status == constants.LinkStatusConflict && extra.Conflict == nil &&
		(link.ConflictData.IsZero() || link.ConflictData.Status == constants.ConflictResolved) {
		return validationError("conflict_data", "is required when moving a link to conflict")
	}

	if extra.Conflict != nil {
		link.ConflictData = newConflictPayload(*extra.Conflict, now)
	}
	if extra.ExternalUpdatedAt != nil {
		ts := extra.ExternalUpdatedAt.UTC()
		link.ExternalUpdatedAt = &ts
	}

	link.SyncStatus = status
	link.LastSyncAt = &now
	return nil
}

func newConflictPayload(req dtos.MarkConflictRequest, now time.Time) gormModels.ConflictPayload {
	detectedAt := now
	if req.DetectedAt != nil {
		detectedAt = req.DetectedAt.UTC()
	}

	fields := req.Fields
	if len(fields) == 0 {
		fields = DiffFields(req.LocalData, req.ExternalData)
	}

	return gormModels.ConflictPayload{
		SchemaVersion: gormModels.ConflictPayloadVersion,
		ConflictType:  strings.TrimSpace(req.ConflictType),
		Fields:        fields,
		LocalData:     req.LocalData,
		ExternalData:  req.ExternalData,
		DetectedAt:    &detectedAt,
		Status:        constants.ConflictUnresolved,
		Notes:         req.Notes,
	}
}

// DiffFields returns, sorted, the keys whose values differ between the two snapshots
func DiffFields(local, external map[string]interface{}) []string {
	keys := make(map[string]struct{}, len(local)+len(external))
	for k := range local {
		keys[k] = struct{}{}
	}
	for k := range external {
		keys[k] = struct{}{}
	}

	var diff []string
	for k := range keys {
		lv, lok := local[k]
		ev, eok := external[k]
		if lok != eok || !reflect.DeepEqual(lv, ev) {
			diff = append(diff, k)
		}
	}
	sort.Strings(diff)
	return diff
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func invalidLinkStatus(status constants.LinkSyncStatus) *ServiceError {
	return validationError("sync_status",
		fmt.Sprintf("unsupported value %q (allowed: synced, pending, conflict, error)", status))
}

func duplicateExternalID(externalID, connectionID string) *ServiceError {
	return &ServiceError{
		Code:    constants.ErrCodeDuplicateExternalID,
		Field:   "external_id",
		Message: fmt.Sprintf("external id %q is already linked for connection %s", externalID, connectionID),
	}
}
