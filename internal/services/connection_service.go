package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/GrantWise/factory-board-sub001/internal/common"
	"github.com/GrantWise/factory-board-sub001/internal/constants"
	"github.com/GrantWise/factory-board-sub001/internal/db/repositories"
	"github.com/GrantWise/factory-board-sub001/internal/logging"
	"github.com/GrantWise/factory-board-sub001/internal/metrics"
	"github.com/GrantWise/factory-board-sub001/internal/models"
	"github.com/GrantWise/factory-board-sub001/internal/models/dtos"
	gormModels "github.com/GrantWise/factory-board-sub001/internal/models/gorm"
)

const (
	connectionConfigTTL = 24 * time.Hour
	defaultConnPageSize = 100
)

// ConnectionService owns ERP connection definitions: validation, storage and
// static checks. It never talks to the ERP itself.
type ConnectionService struct {
	repo     *repositories.ERPConnectionRepo
	cache    common.CacheInterface
	metrics  *metrics.MetricsRegistry
	validate *validator.Validate
	loads    singleflight.Group
}

func NewConnectionService(repo *repositories.ERPConnectionRepo, cache common.CacheInterface, metricsReg *metrics.MetricsRegistry) *ConnectionService {
	return &ConnectionService{
		repo:     repo,
		cache:    cache,
		metrics:  metricsReg,
		validate: newValidator(),
	}
}

// Create validates the request and all configuration documents before anything is written
func (s *ConnectionService) Create(ctx context.Context, req dtos.CreateConnectionRequest) (*gormModels.ERPConnection, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validateStruct(s.validate, "", req); err != nil {
		return nil, err
	}
	if !req.SystemType.Valid() {
		return nil, invalidSystemType(req.SystemType)
	}

	configRaw, _, err := s.checkConnectionConfig(req.ConnectionConfig)
	if err != nil {
		return nil, err
	}
	settingsRaw, _, err := s.checkImportSettings(req.ImportSettings)
	if err != nil {
		return nil, err
	}

	conn := &gormModels.ERPConnection{
		Name:             req.Name,
		SystemType:       req.SystemType,
		IsActive:         true,
		ConnectionConfig: configRaw,
		ImportSettings:   settingsRaw,
		CredentialID:     emptyToNil(req.CredentialID),
		CreatedBy:        req.CreatedBy,
	}
	if req.IsActive != nil {
		conn.IsActive = *req.IsActive
	}

	err = s.repo.Transaction(ctx, func(repo *repositories.ERPConnectionRepo) error {
		existing, err := repo.GetByName(ctx, conn.Name)
		if err != nil {
			return storageError("failed to check connection name", err)
		}
		if existing != nil {
			return duplicateName(conn.Name)
		}
		if err := repo.Create(ctx, conn); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return duplicateName(conn.Name)
			}
			return storageError("failed to create connection", err)
		}
		return nil
	})
	if err != nil {
		return nil, passThrough("failed to create connection", err)
	}

	logging.Info("ERP connection created",
		"connection_id", conn.ID,
		"name", conn.Name,
		"system_type", conn.SystemType,
	)
	return conn, nil
}

// Update applies a partial update. system_type is frozen while dependents exist.
func (s *ConnectionService) Update(ctx context.Context, id string, req dtos.UpdateConnectionRequest) (*gormModels.ERPConnection, error) {
	if err := validateStruct(s.validate, "", req); err != nil {
		return nil, err
	}
	if req.SystemType != nil && !req.SystemType.Valid() {
		return nil, invalidSystemType(*req.SystemType)
	}

	var configRaw, settingsRaw datatypes.JSON
	if len(req.ConnectionConfig) > 0 {
		raw, _, err := s.checkConnectionConfig(req.ConnectionConfig)
		if err != nil {
			return nil, err
		}
		configRaw = raw
	}
	if len(req.ImportSettings) > 0 {
		raw, _, err := s.checkImportSettings(req.ImportSettings)
		if err != nil {
			return nil, err
		}
		settingsRaw = raw
	}

	var updated *gormModels.ERPConnection
	err := s.repo.Transaction(ctx, func(repo *repositories.ERPConnectionRepo) error {
		conn, err := repo.GetByID(ctx, id)
		if err != nil {
			return storageError("failed to load connection", err)
		}
		if conn == nil {
			return notFound("connection", id)
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return validationError("name", "is required")
			}
			if name != conn.Name {
				other, err := repo.GetByName(ctx, name)
				if err != nil {
					return storageError("failed to check connection name", err)
				}
				if other != nil && other.ID != conn.ID {
					return duplicateName(name)
				}
				conn.Name = name
			}
		}

		if req.SystemType != nil && *req.SystemType != conn.SystemType {
			counts, err := repo.CountDependents(ctx, id)
			if err != nil {
				return storageError("failed to count dependent records", err)
			}
			if counts.Any() {
				return dependentRecords(id, counts, "system_type cannot change")
			}
			conn.SystemType = *req.SystemType
		}

		if req.IsActive != nil {
			conn.IsActive = *req.IsActive
		}
		if configRaw != nil {
			conn.ConnectionConfig = configRaw
		}
		if settingsRaw != nil {
			conn.ImportSettings = settingsRaw
		}
		if req.CredentialID != nil {
			conn.CredentialID = emptyToNil(req.CredentialID)
		}

		if err := repo.Save(ctx, conn); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return duplicateName(conn.Name)
			}
			return storageError("failed to update connection", err)
		}
		updated = conn
		return nil
	})
	if err != nil {
		return nil, passThrough("failed to update connection", err)
	}

	s.cache.Delete(common.ConnectionConfigCacheKey(id))
	logging.Info("ERP connection updated", "connection_id", id, "name", updated.Name)
	return updated, nil
}

func (s *ConnectionService) FindByID(ctx context.Context, id string) (*gormModels.ERPConnection, error) {
	conn, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storageError("failed to load connection", err)
	}
	if conn == nil {
		return nil, notFound("connection", id)
	}
	return conn, nil
}

func (s *ConnectionService) FindAll(ctx context.Context, filter dtos.ConnectionFilter) ([]gormModels.ERPConnection, error) {
	if filter.SystemType != "" && !filter.SystemType.Valid() {
		return nil, invalidSystemType(filter.SystemType)
	}
	filter.Limit = clampLimit(filter.Limit, defaultConnPageSize)
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	conns, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, storageError("failed to list connections", err)
	}
	return conns, nil
}

// Delete refuses while any sync state, import log or order link still references the connection
func (s *ConnectionService) Delete(ctx context.Context, id string) error {
	err := s.repo.Transaction(ctx, func(repo *repositories.ERPConnectionRepo) error {
		conn, err := repo.GetByID(ctx, id)
		if err != nil {
			return storageError("failed to load connection", err)
		}
		if conn == nil {
			return notFound("connection", id)
		}

		counts, err := repo.CountDependents(ctx, id)
		if err != nil {
			return storageError("failed to count dependent records", err)
		}
		if counts.Any() {
			return dependentRecords(id, counts, "remove them before deleting the connection")
		}

		if _, err := repo.Delete(ctx, id); err != nil {
			return storageError("failed to delete connection", err)
		}
		return nil
	})
	if err != nil {
		return passThrough("failed to delete connection", err)
	}

	s.cache.Delete(common.ConnectionConfigCacheKey(id))
	logging.Info("ERP connection deleted", "connection_id", id)
	return nil
}

// Test statically checks a stored connection. No network call is made.
func (s *ConnectionService) Test(ctx context.Context, id string) (*dtos.TestResult, error) {
	conn, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	result := s.TestDocuments(conn.SystemType, conn.ConnectionConfig, conn.ImportSettings)
	result.Details["connection_id"] = conn.ID
	result.Details["is_active"] = conn.IsActive
	result.Details["has_credential"] = conn.CredentialID != nil
	if !conn.IsActive {
		result.Warnings = append(result.Warnings, "Connection is inactive; scheduled imports will skip it")
	}

	logging.Info("ERP connection tested",
		"connection_id", conn.ID,
		"success", result.Success,
		"warnings", len(result.Warnings),
	)
	return result, nil
}

// TestDocuments runs the static checks on raw configuration documents
func (s *ConnectionService) TestDocuments(systemType constants.SystemType, configRaw, settingsRaw []byte) *dtos.TestResult {
	result := &dtos.TestResult{
		Details:     map[string]interface{}{"system_type": systemType},
		Warnings:    []string{},
		Suggestions: []string{},
	}

	if !systemType.Valid() {
		result.Errors = append(result.Errors, invalidSystemType(systemType).Error())
	}
	_, cfg, err := s.checkConnectionConfig(configRaw)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	}
	_, settings, err := s.checkImportSettings(settingsRaw)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	}

	if len(result.Errors) > 0 {
		result.Message = "Connection configuration is invalid"
		return result
	}

	result.Success = true
	result.Message = "Connection configuration is valid"
	result.Details["auth_type"] = cfg.AuthType
	result.Details["base_url"] = cfg.BaseURL
	result.Details["endpoint_count"] = len(cfg.Endpoints)

	audit := SecurityAudit(cfg)
	result.Details["security_score"] = audit.Score

	result.Warnings, result.Suggestions = staticRiskSignals(systemType, cfg, settings)
	return result
}

// TemplateFor returns the starter configuration for a system type
func (s *ConnectionService) TemplateFor(systemType constants.SystemType) (*dtos.ConnectionTemplate, error) {
	tmpl, ok := connectionTemplate(systemType)
	if !ok {
		return nil, invalidSystemType(systemType)
	}
	return tmpl, nil
}

// GetConfigCached returns the parsed connection config, loading it at most
// once per key across concurrent callers
func (s *ConnectionService) GetConfigCached(ctx context.Context, id string) (*dtos.ConnectionConfig, error) {
	cacheKey := common.ConnectionConfigCacheKey(id)

	var cached dtos.ConnectionConfig
	if s.cache.Get(cacheKey, &cached) {
		s.metrics.CacheHit(string(constants.CachePrefixConnectionConfig))
		return &cached, nil
	}
	s.metrics.CacheMiss(string(constants.CachePrefixConnectionConfig))

	v, err, _ := s.loads.Do(cacheKey, func() (interface{}, error) {
		conn, err := s.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}

		cfg, err := dtos.ParseConnectionConfig(conn.ConnectionConfig)
		if err != nil {
			logging.Warn("Stored connection_config is unreadable, using empty config",
				"connection_id", id,
				"column", "connection_config",
				"error", err.Error(),
			)
			return &dtos.ConnectionConfig{}, nil
		}

		s.cache.Set(cacheKey, cfg, connectionConfigTTL)
		return cfg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*dtos.ConnectionConfig), nil
}

// ToResponse shapes a connection for the admin API with secrets masked
func (s *ConnectionService) ToResponse(conn *gormModels.ERPConnection) dtos.ConnectionResponse {
	resp := dtos.ConnectionResponse{
		ID:               conn.ID,
		Name:             conn.Name,
		SystemType:       conn.SystemType,
		IsActive:         conn.IsActive,
		ConnectionConfig: json.RawMessage("{}"),
		ImportSettings:   models.SafeRawJSON("import_settings", conn.ImportSettings, "{}"),
		HasCredential:    conn.CredentialID != nil,
		CreatedBy:        conn.CreatedBy,
		CreatedAt:        conn.CreatedAt,
		UpdatedAt:        conn.UpdatedAt,
	}

	cfg, err := dtos.ParseConnectionConfig(conn.ConnectionConfig)
	if err != nil {
		logging.Warn("Stored connection_config is unreadable, returning empty object",
			"connection_id", conn.ID,
			"column", "connection_config",
			"error", err.Error(),
		)
		return resp
	}
	if masked, err := json.Marshal(cfg.Masked()); err == nil {
		resp.ConnectionConfig = masked
	}
	return resp
}

// checkConnectionConfig parses and validates a connection_config document.
// The returned raw bytes are what gets stored, so reads hand back the caller's document.
func (s *ConnectionService) checkConnectionConfig(raw json.RawMessage) (datatypes.JSON, *dtos.ConnectionConfig, error) {
	cfg, err := dtos.ParseConnectionConfig(raw)
	if err != nil {
		return nil, nil, fromFieldError(err)
	}

	if cfg.AuthType == "" {
		return nil, nil, validationError("connection_config.auth_type", "is required")
	}
	if cfg.AuthConfig == nil {
		return nil, nil, validationError("connection_config.auth_config", "is required")
	}
	if cfg.AuthConfig.AuthType() != cfg.AuthType {
		return nil, nil, validationError("connection_config.auth_config",
			fmt.Sprintf("does not match auth_type %q", cfg.AuthType))
	}

	if err := validateStruct(s.validate, "connection_config", cfg); err != nil {
		return nil, nil, err
	}
	if _, custom := cfg.AuthConfig.(dtos.CustomAuth); !custom {
		if err := validateStruct(s.validate, "connection_config.auth_config", cfg.AuthConfig); err != nil {
			return nil, nil, err
		}
	}

	return datatypes.JSON(bytes.TrimSpace(raw)), cfg, nil
}

// checkImportSettings parses and validates an import_settings document. An
// absent document is stored as an empty object.
func (s *ConnectionService) checkImportSettings(raw json.RawMessage) (datatypes.JSON, *dtos.ImportSettings, error) {
	settings, err := dtos.ParseImportSettings(raw)
	if err != nil {
		return nil, nil, fromFieldError(err)
	}
	if err := validateStruct(s.validate, "import_settings", settings); err != nil {
		return nil, nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return datatypes.JSON("{}"), settings, nil
	}
	return datatypes.JSON(trimmed), settings, nil
}

func invalidSystemType(t constants.SystemType) *ServiceError {
	allowed := make([]string, 0, len(constants.SystemTypes))
	for _, st := range constants.SystemTypes {
		allowed = append(allowed, string(st))
	}
	return validationError("system_type",
		fmt.Sprintf("unsupported value %q (allowed: %s)", t, strings.Join(allowed, ", ")))
}

func duplicateName(name string) *ServiceError {
	return &ServiceError{
		Code:    constants.ErrCodeDuplicateName,
		Field:   "name",
		Message: fmt.Sprintf("connection name %q is already in use", name),
	}
}

func dependentRecords(id string, counts repositories.DependentCounts, hint string) *ServiceError {
	return &ServiceError{
		Code: constants.ErrCodeDependentRecords,
		Message: fmt.Sprintf("connection %s has %d sync state(s), %d import log(s) and %d order link(s); %s",
			id, counts.SyncStates, counts.ImportLogs, counts.OrderLinks, hint),
	}
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > constants.MaxPageSize {
		return constants.MaxPageSize
	}
	return limit
}
