package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrantWise/factory-board-sub001/internal/constants"
	"github.com/GrantWise/factory-board-sub001/internal/models/dtos"
)

func TestSecurityAudit(t *testing.T) {
	cases := []struct {
		name      string
		cfg       dtos.ConnectionConfig
		wantScore int
	}{
		{
			name: "https api key with retry policy",
			cfg: dtos.ConnectionConfig{
				AuthType:      constants.AuthTypeAPIKey,
				AuthConfig:    dtos.APIKeyAuth{APIKey: "k-1234567890"},
				BaseURL:       "https://erp.example.com",
				RetryAttempts: intPtr(3),
			},
			wantScore: 100,
		},
		{
			name: "no retry policy",
			cfg: dtos.ConnectionConfig{
				AuthType:   constants.AuthTypeBearer,
				AuthConfig: dtos.BearerAuth{Token: "t"},
				BaseURL:    "https://erp.example.com",
			},
			wantScore: 95,
		},
		{
			name: "plain http with strong basic auth",
			cfg: dtos.ConnectionConfig{
				AuthType:      constants.AuthTypeBasic,
				AuthConfig:    dtos.BasicAuth{Username: "svc-mes", Password: "c0rrect-h0rse-battery"},
				BaseURL:       "http://erp.local",
				RetryAttempts: intPtr(3),
			},
			wantScore: 65,
		},
		{
			name: "short default password is capped",
			cfg: dtos.ConnectionConfig{
				AuthType:      constants.AuthTypeBasic,
				AuthConfig:    dtos.BasicAuth{Username: "admin", Password: "admin"},
				BaseURL:       "https://erp.example.com",
				RetryAttempts: intPtr(3),
			},
			wantScore: 60,
		},
		{
			name: "every penalty applies",
			cfg: dtos.ConnectionConfig{
				AuthType:           constants.AuthTypeBasic,
				AuthConfig:         dtos.BasicAuth{Username: "admin", Password: "admin"},
				BaseURL:            "http://erp.local",
				RateLimitPerMinute: intPtr(5000),
				RetryAttempts:      intPtr(50),
			},
			wantScore: 30,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			audit := SecurityAudit(&cfg)
			assert.Equal(t, tc.wantScore, audit.Score)
			if tc.wantScore < 100 {
				assert.NotEmpty(t, audit.Warnings)
			} else {
				assert.Empty(t, audit.Warnings)
			}
		})
	}
}

func TestSecurityAudit_NilConfig(t *testing.T) {
	audit := SecurityAudit(nil)
	assert.Equal(t, 100, audit.Score)
	require.NotNil(t, audit.Warnings)
}

func TestLooksLikeDefaultPassword(t *testing.T) {
	assert.True(t, looksLikeDefaultPassword("Password123", "svc"))
	assert.True(t, looksLikeDefaultPassword("MesUser", "mesuser"))
	assert.True(t, looksLikeDefaultPassword("changeme", ""))
	assert.False(t, looksLikeDefaultPassword("x9!Lq-22vB", "svc"))
}
