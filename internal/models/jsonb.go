package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/GrantWise/factory-board-sub001/internal/logging"
)

// JSONB is a freeform JSON object column (sync metadata, import metadata,
// snapshots). Corrupt stored values degrade to an empty object on read.
type JSONB map[string]interface{}

// Scan implements the sql.Scanner interface for JSONB
func (j *JSONB) Scan(value interface{}) error {
	result := make(map[string]interface{})
	*j = result

	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		logging.Warn("Unsupported JSONB column type, using empty object", "type", fmt.Sprintf("%T", value))
		return nil
	}

	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		logging.Warn("Corrupt JSONB column, using empty object", "error", err.Error())
		return nil
	}

	*j = result
	return nil
}

// Value implements the driver.Valuer interface for JSONB
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSONB: %w", err)
	}
	return string(b), nil
}

// GormDBDataType picks jsonb on postgres and a plain JSON text column elsewhere
func (JSONB) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "JSONB"
	}
	return "JSON"
}

// Merge copies every key of src into j, allocating j if needed
func (j *JSONB) Merge(src map[string]interface{}) {
	if *j == nil {
		*j = make(JSONB, len(src))
	}
	for k, v := range src {
		(*j)[k] = v
	}
}

// Clone returns a shallow copy so callers can mutate without aliasing a loaded row
func (j JSONB) Clone() JSONB {
	out := make(JSONB, len(j))
	for k, v := range j {
		out[k] = v
	}
	return out
}

// SafeRawJSON returns raw when it is valid JSON and fallback otherwise
func SafeRawJSON(column string, raw []byte, fallback string) json.RawMessage {
	if len(raw) > 0 && json.Valid(raw) {
		return json.RawMessage(raw)
	}
	if len(raw) > 0 {
		logging.Warn("Corrupt JSON document, returning default", "column", column)
	}
	return json.RawMessage(fallback)
}
