package dtos

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/GrantWise/factory-board-sub001/internal/constants"
)

// FieldError is a decode or validation failure pinned to one JSON field path
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// AuthConfig is the sum type behind connection_config.auth_config. The
// concrete variant is chosen by connection_config.auth_type.
type AuthConfig interface {
	AuthType() constants.AuthType
	// Masked returns a copy with secrets replaced, for API responses
	Masked() AuthConfig
}

// APIKeyAuth authenticates with a static key, sent in a header or query parameter
type APIKeyAuth struct {
	APIKey       string `json:"api_key,omitempty" validate:"required_without=APIKeyHeader"`
	APIKeyHeader string `json:"api_key_header,omitempty" validate:"required_without=APIKey"`
	Location     string `json:"location,omitempty" validate:"omitempty,oneof=header query"`
}

func (APIKeyAuth) AuthType() constants.AuthType { return constants.AuthTypeAPIKey }

func (a APIKeyAuth) Masked() AuthConfig {
	a.APIKey = MaskSecret(a.APIKey)
	return a
}

// OAuth2Auth is the client-credentials style OAuth2 configuration
type OAuth2Auth struct {
	ClientID     string   `json:"client_id" validate:"required"`
	ClientSecret string   `json:"client_secret" validate:"required"`
	TokenURL     string   `json:"token_url,omitempty" validate:"omitempty,url"`
	Scopes       []string `json:"scopes,omitempty"`
	GrantType    string   `json:"grant_type,omitempty" validate:"omitempty,oneof=client_credentials password authorization_code refresh_token"`
}

func (OAuth2Auth) AuthType() constants.AuthType { return constants.AuthTypeOAuth2 }

func (a OAuth2Auth) Masked() AuthConfig {
	a.ClientSecret = MaskSecret(a.ClientSecret)
	return a
}

// BasicAuth is HTTP basic authentication
type BasicAuth struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (BasicAuth) AuthType() constants.AuthType { return constants.AuthTypeBasic }

func (a BasicAuth) Masked() AuthConfig {
	a.Password = MaskSecret(a.Password)
	return a
}

// BearerAuth sends a fixed bearer token
type BearerAuth struct {
	Token string `json:"token" validate:"required"`
}

func (BearerAuth) AuthType() constants.AuthType { return constants.AuthTypeBearer }

func (a BearerAuth) Masked() AuthConfig {
	a.Token = MaskSecret(a.Token)
	return a
}

// CustomAuth keeps an arbitrary object, interpreted only by the ERP client
type CustomAuth struct {
	Fields map[string]interface{}
}

func (CustomAuth) AuthType() constants.AuthType { return constants.AuthTypeCustom }

func (a CustomAuth) Masked() AuthConfig {
	masked := make(map[string]interface{}, len(a.Fields))
	for k, v := range a.Fields {
		if s, ok := v.(string); ok {
			masked[k] = MaskSecret(s)
			continue
		}
		masked[k] = v
	}
	return CustomAuth{Fields: masked}
}

func (a CustomAuth) MarshalJSON() ([]byte, error) {
	if a.Fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(a.Fields)
}

func (a *CustomAuth) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &a.Fields)
}

// DecodeAuthConfig builds the variant named by authType from its raw JSON object
func DecodeAuthConfig(authType constants.AuthType, raw json.RawMessage) (AuthConfig, error) {
	var target AuthConfig
	switch authType {
	case constants.AuthTypeAPIKey:
		target = &APIKeyAuth{}
	case constants.AuthTypeOAuth2:
		target = &OAuth2Auth{}
	case constants.AuthTypeBasic:
		target = &BasicAuth{}
	case constants.AuthTypeBearer:
		target = &BearerAuth{}
	case constants.AuthTypeCustom:
		target = &CustomAuth{}
	case "":
		return nil, &FieldError{Field: "auth_type", Message: "is required"}
	default:
		return nil, &FieldError{
			Field:   "auth_type",
			Message: fmt.Sprintf("unsupported value %q (allowed: api_key, oauth2, basic, bearer, custom)", authType),
		}
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] != '{' {
		return nil, &FieldError{Field: "auth_config", Message: "must be an object"}
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if err := dec.Decode(target); err != nil {
		return nil, decodeFieldError("auth_config", err)
	}

	// Return the value, not the pointer, so callers switch on concrete structs
	switch v := target.(type) {
	case *APIKeyAuth:
		return *v, nil
	case *OAuth2Auth:
		return *v, nil
	case *BasicAuth:
		return *v, nil
	case *BearerAuth:
		return *v, nil
	case *CustomAuth:
		return *v, nil
	}
	return target, nil
}

// ConnectionConfig is the typed view of erp_connections.connection_config
type ConnectionConfig struct {
	AuthType               constants.AuthType `json:"auth_type"`
	AuthConfig             AuthConfig         `json:"-" validate:"-"`
	BaseURL                string             `json:"base_url,omitempty" validate:"omitempty,url"`
	Endpoints              map[string]string  `json:"endpoints,omitempty" validate:"omitempty,dive,keys,required,endkeys,required"`
	RateLimitPerMinute     *int               `json:"rate_limit_per_minute,omitempty" validate:"omitempty,gt=0"`
	RetryAttempts          *int               `json:"retry_attempts,omitempty" validate:"omitempty,gt=0"`
	TimeoutSeconds         *int               `json:"timeout_seconds,omitempty" validate:"omitempty,gt=0"`
	PollingIntervalMinutes *int               `json:"polling_interval_minutes,omitempty" validate:"omitempty,gt=0"`
	Headers                map[string]string  `json:"headers,omitempty"`
}

type connectionConfigAlias ConnectionConfig

func (c ConnectionConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		connectionConfigAlias
		AuthConfig AuthConfig `json:"auth_config,omitempty"`
	}{
		connectionConfigAlias: connectionConfigAlias(c),
		AuthConfig:            c.AuthConfig,
	})
}

func (c *ConnectionConfig) UnmarshalJSON(data []byte) error {
	// Decode the flat fields straight into the alias so type errors name the
	// json field itself, then pick up auth_config separately.
	if err := json.Unmarshal(data, (*connectionConfigAlias)(c)); err != nil {
		return decodeFieldError("connection_config", err)
	}
	var auth struct {
		AuthConfig json.RawMessage `json:"auth_config"`
	}
	if err := json.Unmarshal(data, &auth); err != nil {
		return decodeFieldError("connection_config", err)
	}

	if c.AuthType == "" && len(auth.AuthConfig) == 0 {
		return nil
	}
	decoded, err := DecodeAuthConfig(c.AuthType, auth.AuthConfig)
	if err != nil {
		return err
	}
	c.AuthConfig = decoded
	return nil
}

// Masked returns a copy safe to expose through the admin API
func (c ConnectionConfig) Masked() ConnectionConfig {
	if c.AuthConfig != nil {
		c.AuthConfig = c.AuthConfig.Masked()
	}
	return c
}

// ParseConnectionConfig decodes a raw connection_config document
func ParseConnectionConfig(raw []byte) (*ConnectionConfig, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, &FieldError{Field: "connection_config", Message: "is required"}
	}
	if trimmed[0] != '{' {
		return nil, &FieldError{Field: "connection_config", Message: "must be an object"}
	}
	var cfg ConnectionConfig
	if err := json.Unmarshal(trimmed, &cfg); err != nil {
		var fe *FieldError
		if errors.As(err, &fe) {
			if !strings.HasPrefix(fe.Field, "connection_config") {
				return nil, &FieldError{Field: "connection_config." + fe.Field, Message: fe.Message}
			}
			return nil, fe
		}
		return nil, decodeFieldError("connection_config", err)
	}
	return &cfg, nil
}

// MaskSecret keeps the last four characters of longer secrets
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

func decodeFieldError(prefix string, err error) error {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := prefix
		if typeErr.Field != "" {
			field = prefix + "." + typeErr.Field
		}
		return &FieldError{
			Field:   field,
			Message: fmt.Sprintf("must be %s, got %s", describeKind(typeErr.Type.Kind().String()), typeErr.Value),
		}
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &FieldError{Field: prefix, Message: fmt.Sprintf("is not valid JSON (offset %d)", syntaxErr.Offset)}
	}
	return &FieldError{Field: prefix, Message: err.Error()}
}

func describeKind(kind string) string {
	switch kind {
	case "int", "int64", "int32":
		return "an integer"
	case "string":
		return "a string"
	case "bool":
		return "a boolean"
	case "map", "struct":
		return "an object"
	case "slice":
		return "an array"
	}
	return kind
}
