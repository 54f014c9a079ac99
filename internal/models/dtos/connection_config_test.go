package dtos

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrantWise/factory-board-sub001/internal/constants"
)

func TestParseConnectionConfig_Variants(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want AuthConfig
	}{
		{
			name: "api key",
			raw:  `{"auth_type":"api_key","auth_config":{"api_key":"k-123456","location":"query"}}`,
			want: APIKeyAuth{APIKey: "k-123456", Location: "query"},
		},
		{
			name: "oauth2",
			raw:  `{"auth_type":"oauth2","auth_config":{"client_id":"id","client_secret":"s","scopes":["a","b"]}}`,
			want: OAuth2Auth{ClientID: "id", ClientSecret: "s", Scopes: []string{"a", "b"}},
		},
		{
			name: "basic",
			raw:  `{"auth_type":"basic","auth_config":{"username":"u","password":"p"}}`,
			want: BasicAuth{Username: "u", Password: "p"},
		},
		{
			name: "bearer",
			raw:  `{"auth_type":"bearer","auth_config":{"token":"t"}}`,
			want: BearerAuth{Token: "t"},
		},
		{
			name: "custom",
			raw:  `{"auth_type":"custom","auth_config":{"tenant":"plant-7","signed":true}}`,
			want: CustomAuth{Fields: map[string]interface{}{"tenant": "plant-7", "signed": true}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := ParseConnectionConfig([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, cfg.AuthConfig)
			assert.Equal(t, tc.want.AuthType(), cfg.AuthType)

			// marshalling the typed view gives back an equivalent document
			out, err := json.Marshal(cfg)
			require.NoError(t, err)
			assert.JSONEq(t, tc.raw, string(out))
		})
	}
}

func TestParseConnectionConfig_Errors(t *testing.T) {
	cases := []struct {
		name      string
		raw       string
		wantField string
	}{
		{"empty", ``, "connection_config"},
		{"not an object", `[1,2]`, "connection_config"},
		{"unknown auth type", `{"auth_type":"ntlm","auth_config":{}}`, "connection_config.auth_type"},
		{"auth config not an object", `{"auth_type":"basic","auth_config":"user:pass"}`, "connection_config.auth_config"},
		{"wrong field type", `{"auth_type":"bearer","auth_config":{"token":"t"},"retry_attempts":"three"}`, "connection_config.retry_attempts"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseConnectionConfig([]byte(tc.raw))
			require.Error(t, err)

			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tc.wantField, fe.Field)
		})
	}
}

func TestConnectionConfig_Masked(t *testing.T) {
	cfg, err := ParseConnectionConfig([]byte(`{
		"auth_type": "oauth2",
		"auth_config": {"client_id": "public-id", "client_secret": "very-secret-value"}
	}`))
	require.NoError(t, err)

	masked := cfg.Masked()
	oauth, ok := masked.AuthConfig.(OAuth2Auth)
	require.True(t, ok)
	assert.Equal(t, "public-id", oauth.ClientID)
	assert.Equal(t, "****alue", oauth.ClientSecret)

	original := cfg.AuthConfig.(OAuth2Auth)
	assert.Equal(t, "very-secret-value", original.ClientSecret, "masking returns a copy")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret(""))
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Equal(t, "****", MaskSecret("abcd"))
	assert.Equal(t, "****2345", MaskSecret("012345"))
}

func TestParseImportSettings(t *testing.T) {
	settings, err := ParseImportSettings(nil)
	require.NoError(t, err)
	assert.Equal(t, ImportSettings{}, *settings)

	settings, err = ParseImportSettings([]byte(`{
		"duplicate_handling": "skip",
		"required_fields": ["order_number"],
		"batch_size": 50,
		"field_mappings": {"order_number": "Order No"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, constants.DuplicateSkip, settings.DuplicateHandling)
	require.NotNil(t, settings.BatchSize)
	assert.Equal(t, 50, *settings.BatchSize)
	assert.Equal(t, "Order No", settings.FieldMappings["order_number"])

	_, err = ParseImportSettings([]byte(`{"batch_size": "lots"}`))
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "import_settings.batch_size", fe.Field)
}
