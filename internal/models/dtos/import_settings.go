package dtos

import (
	"bytes"
	"encoding/json"

	"github.com/GrantWise/factory-board-sub001/internal/constants"
)

// ImportSettings is the typed view of erp_connections.import_settings
type ImportSettings struct {
	DuplicateHandling constants.DuplicateHandling `json:"duplicate_handling,omitempty" validate:"omitempty,oneof=skip update create_new"`
	RequiredFields    []string                    `json:"required_fields,omitempty" validate:"omitempty,dive,required"`
	BatchSize         *int                        `json:"batch_size,omitempty" validate:"omitempty,gt=0"`
	AutoImport        bool                        `json:"auto_import"`
	NotificationEmail string                      `json:"notification_email,omitempty" validate:"omitempty,email"`
	FieldMappings     map[string]string           `json:"field_mappings,omitempty"`
}

// ParseImportSettings decodes a raw import_settings document. An absent
// document decodes to the zero settings.
func ParseImportSettings(raw []byte) (*ImportSettings, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return &ImportSettings{}, nil
	}
	if trimmed[0] != '{' {
		return nil, &FieldError{Field: "import_settings", Message: "must be an object"}
	}
	var settings ImportSettings
	if err := json.Unmarshal(trimmed, &settings); err != nil {
		return nil, decodeFieldError("import_settings", err)
	}
	return &settings, nil
}
