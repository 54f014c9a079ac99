package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrantWise/factory-board-sub001/internal/common"
	"github.com/GrantWise/factory-board-sub001/internal/constants"
	"github.com/GrantWise/factory-board-sub001/internal/models/dtos"
)

func TestConnectionService_CreateRoundTripsDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.createConnection(t, "Plant ERP")
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.IsActive)

	found, err := f.connections.FindByID(ctx, created.ID)
	require.NoError(t, err)

	assert.JSONEq(t, apiKeyConfig, string(found.ConnectionConfig))
	assert.JSONEq(t, basicSettings, string(found.ImportSettings))
	assert.Equal(t, constants.SystemTypeGenericRest, found.SystemType)
}

func TestConnectionService_CreateStoresEmptySettingsWhenAbsent(t *testing.T) {
	f := newFixture(t)

	conn, err := f.connections.Create(context.Background(), dtos.CreateConnectionRequest{
		Name:             "No settings",
		SystemType:       constants.SystemTypeCustom,
		ConnectionConfig: json.RawMessage(`{"auth_type":"custom","auth_config":{"tenant":"a"}}`),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(conn.ImportSettings))
}

func TestConnectionService_DuplicateNameRejected(t *testing.T) {
	f := newFixture(t)
	f.createConnection(t, "Plant ERP")

	_, err := f.connections.Create(context.Background(), dtos.CreateConnectionRequest{
		Name:             "Plant ERP",
		SystemType:       constants.SystemTypeGenericRest,
		ConnectionConfig: json.RawMessage(apiKeyConfig),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestConnectionService_CreateValidation(t *testing.T) {
	cases := []struct {
		name      string
		req       dtos.CreateConnectionRequest
		wantField string
	}{
		{
			name: "missing name",
			req: dtos.CreateConnectionRequest{
				SystemType:       constants.SystemTypeGenericRest,
				ConnectionConfig: json.RawMessage(apiKeyConfig),
			},
			wantField: "name",
		},
		{
			name: "unknown system type",
			req: dtos.CreateConnectionRequest{
				Name:             "x",
				SystemType:       "mainframe",
				ConnectionConfig: json.RawMessage(apiKeyConfig),
			},
			wantField: "system_type",
		},
		{
			name: "missing connection config",
			req: dtos.CreateConnectionRequest{
				Name:       "x",
				SystemType: constants.SystemTypeGenericRest,
			},
			wantField: "connection_config",
		},
		{
			name: "oauth2 without client secret",
			req: dtos.CreateConnectionRequest{
				Name:       "x",
				SystemType: constants.SystemTypeSAPRest,
				ConnectionConfig: json.RawMessage(`{
					"auth_type": "oauth2",
					"auth_config": {"client_id": "abc"}
				}`),
			},
			wantField: "connection_config.auth_config.client_secret",
		},
		{
			name: "unknown auth type",
			req: dtos.CreateConnectionRequest{
				Name:             "x",
				SystemType:       constants.SystemTypeGenericRest,
				ConnectionConfig: json.RawMessage(`{"auth_type": "kerberos", "auth_config": {}}`),
			},
			wantField: "connection_config.auth_type",
		},
		{
			name: "negative retry attempts",
			req: dtos.CreateConnectionRequest{
				Name:       "x",
				SystemType: constants.SystemTypeGenericRest,
				ConnectionConfig: json.RawMessage(`{
					"auth_type": "bearer",
					"auth_config": {"token": "t0ken-value"},
					"retry_attempts": -1
				}`),
			},
			wantField: "connection_config.retry_attempts",
		},
		{
			name: "retry attempts of the wrong type",
			req: dtos.CreateConnectionRequest{
				Name:       "x",
				SystemType: constants.SystemTypeGenericRest,
				ConnectionConfig: json.RawMessage(`{
					"auth_type": "bearer",
					"auth_config": {"token": "t0ken-value"},
					"retry_attempts": "three"
				}`),
			},
			wantField: "connection_config.retry_attempts",
		},
		{
			name: "timeout of the wrong type",
			req: dtos.CreateConnectionRequest{
				Name:       "x",
				SystemType: constants.SystemTypeGenericRest,
				ConnectionConfig: json.RawMessage(`{
					"auth_type": "bearer",
					"auth_config": {"token": "t0ken-value"},
					"timeout_seconds": true
				}`),
			},
			wantField: "connection_config.timeout_seconds",
		},
		{
			name: "bad duplicate handling",
			req: dtos.CreateConnectionRequest{
				Name:             "x",
				SystemType:       constants.SystemTypeGenericRest,
				ConnectionConfig: json.RawMessage(apiKeyConfig),
				ImportSettings:   json.RawMessage(`{"duplicate_handling": "merge"}`),
			},
			wantField: "import_settings.duplicate_handling",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.connections.Create(context.Background(), tc.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)

			var se *ServiceError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.wantField, se.Field)
		})
	}
}

func TestConnectionService_DeleteBlockedBySyncState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conn := f.createConnection(t, "Plant ERP")
	_, err := f.syncStates.Init(ctx, conn.ID, "", nil)
	require.NoError(t, err)

	err = f.connections.Delete(ctx, conn.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDependentRecords)

	require.NoError(t, f.syncStates.Delete(ctx, conn.ID))
	require.NoError(t, f.connections.Delete(ctx, conn.ID))

	_, err = f.connections.FindByID(ctx, conn.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConnectionService_UpdateSystemTypeFrozenWithDependents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conn := f.createConnection(t, "Plant ERP")
	f.createLink(t, conn.ID, "EXT-1", 10)

	sapREST := constants.SystemTypeSAPRest
	_, err := f.connections.Update(ctx, conn.ID, dtos.UpdateConnectionRequest{SystemType: &sapREST})
	assert.ErrorIs(t, err, ErrDependentRecords)

	newName := "Plant ERP (EU)"
	updated, err := f.connections.Update(ctx, conn.ID, dtos.UpdateConnectionRequest{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, newName, updated.Name)
	assert.Equal(t, constants.SystemTypeGenericRest, updated.SystemType)
}

func TestConnectionService_UpdateRenameToTakenName(t *testing.T) {
	f := newFixture(t)
	f.createConnection(t, "First")
	second := f.createConnection(t, "Second")

	taken := "First"
	_, err := f.connections.Update(context.Background(), second.ID, dtos.UpdateConnectionRequest{Name: &taken})
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestConnectionService_FindAllFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.createConnection(t, "Beta plant")
	f.createConnection(t, "Alpha plant")
	inactive := false
	_, err := f.connections.Create(ctx, dtos.CreateConnectionRequest{
		Name:             "Gamma warehouse",
		SystemType:       constants.SystemTypeCSVFile,
		IsActive:         &inactive,
		ConnectionConfig: json.RawMessage(`{"auth_type":"custom","auth_config":{"upload_only":true}}`),
	})
	require.NoError(t, err)

	all, err := f.connections.FindAll(ctx, dtos.ConnectionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Alpha plant", all[0].Name)

	plants, err := f.connections.FindAll(ctx, dtos.ConnectionFilter{NameContains: "PLANT"})
	require.NoError(t, err)
	assert.Len(t, plants, 2)

	active := true
	actives, err := f.connections.FindAll(ctx, dtos.ConnectionFilter{IsActive: &active})
	require.NoError(t, err)
	assert.Len(t, actives, 2)

	files, err := f.connections.FindAll(ctx, dtos.ConnectionFilter{SystemType: constants.SystemTypeCSVFile})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "Gamma warehouse", files[0].Name)
}

func TestConnectionService_ToResponseMasksSecrets(t *testing.T) {
	f := newFixture(t)
	conn := f.createConnection(t, "Plant ERP")

	resp := f.connections.ToResponse(conn)

	var cfg map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.ConnectionConfig, &cfg))
	auth := cfg["auth_config"].(map[string]interface{})
	assert.Equal(t, "****7890", auth["api_key"])
	assert.False(t, resp.HasCredential)
}

func TestConnectionService_GetConfigCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conn := f.createConnection(t, "Plant ERP")

	cfg, err := f.connections.GetConfigCached(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.AuthTypeAPIKey, cfg.AuthType)
	assert.Equal(t, 1, f.cache.ItemCount())

	var cached dtos.ConnectionConfig
	require.True(t, f.cache.Get(common.ConnectionConfigCacheKey(conn.ID), &cached))
	assert.Equal(t, "https://erp.example.com/api", cached.BaseURL)
	assert.IsType(t, dtos.APIKeyAuth{}, cached.AuthConfig)

	newName := "Renamed"
	_, err = f.connections.Update(ctx, conn.ID, dtos.UpdateConnectionRequest{Name: &newName})
	require.NoError(t, err)
	assert.False(t, f.cache.Get(common.ConnectionConfigCacheKey(conn.ID), &cached), "update evicts the cached config")
}

func TestConnectionService_TestStaticChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conn, err := f.connections.Create(ctx, dtos.CreateConnectionRequest{
		Name:       "Legacy SOAP",
		SystemType: constants.SystemTypeGenericSoap,
		ConnectionConfig: json.RawMessage(`{
			"auth_type": "basic",
			"auth_config": {"username": "admin", "password": "admin"},
			"base_url": "http://legacy.local/soap"
		}`),
	})
	require.NoError(t, err)

	result, err := f.connections.Test(ctx, conn.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)
	assert.Contains(t, result.Warnings, "base_url uses plain HTTP; credentials and order data travel unencrypted")
	assert.Contains(t, result.Suggestions, "Switch base_url to https")
	assert.Equal(t, conn.ID, result.Details["connection_id"])
}

func TestConnectionService_TestDocumentsReportsErrors(t *testing.T) {
	f := newFixture(t)

	result := f.connections.TestDocuments("mainframe", []byte(`{"auth_type":"bearer","auth_config":{}}`), nil)
	assert.False(t, result.Success)
	assert.Len(t, result.Errors, 2)
}

func TestConnectionService_TemplateForEverySystemType(t *testing.T) {
	f := newFixture(t)

	for _, st := range constants.SystemTypes {
		tmpl, err := f.connections.TemplateFor(st)
		require.NoError(t, err, st)
		assert.Equal(t, st, tmpl.SystemType)
		assert.NotEmpty(t, tmpl.ConnectionConfig["auth_type"], st)

		raw, err := json.Marshal(tmpl.ImportSettings)
		require.NoError(t, err)
		_, err = dtos.ParseImportSettings(raw)
		assert.NoError(t, err, st)
	}

	_, err := f.connections.TemplateFor("mainframe")
	assert.ErrorIs(t, err, ErrValidation)
}
