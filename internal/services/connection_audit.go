package services

import (
	"fmt"
	"strings"

	"github.com/GrantWise/factory-board-sub001/internal/constants"
	"github.com/GrantWise/factory-board-sub001/internal/models/dtos"
)

// Security audit penalties, subtracted from a starting score of 100
const (
	penaltyPlainHTTP        = 20
	penaltyBasicAuth        = 15
	penaltyShortPassword    = 15
	penaltyDefaultPassword  = 10
	maxPasswordPenalty      = 25
	penaltyExcessRateLimit  = 5
	penaltyRetryPolicy      = 5
	minPasswordLength       = 8
	maxSafeRateLimit        = 1000
	maxSafeRetryAttempts    = 10
	maxSafeTimeoutSeconds   = 300
	maxSafeImportBatchSize  = 1000
	defaultSuggestedRetries = 3
)

var defaultLookingPasswords = map[string]bool{
	"password": true, "passw0rd": true, "admin": true, "administrator": true,
	"changeme": true, "default": true, "secret": true, "test": true,
	"letmein": true, "welcome": true, "qwerty": true, "123456": true,
	"12345678": true, "sap": true, "oracle": true, "manager": true,
}

// SecurityAudit scores a connection configuration from 0 to 100
func SecurityAudit(cfg *dtos.ConnectionConfig) dtos.SecurityAudit {
	audit := dtos.SecurityAudit{Score: 100, Warnings: []string{}}
	if cfg == nil {
		return audit
	}

	penalize := func(points int, warning string) {
		audit.Score -= points
		audit.Warnings = append(audit.Warnings, warning)
	}

	if usesPlainHTTP(cfg.BaseURL) {
		penalize(penaltyPlainHTTP, "base_url uses HTTP instead of HTTPS")
	}

	if basic, ok := cfg.AuthConfig.(dtos.BasicAuth); ok {
		penalize(penaltyBasicAuth, "basic authentication sends reusable credentials with every request")

		passwordPenalty := 0
		var passwordWarnings []string
		if len(basic.Password) < minPasswordLength {
			passwordPenalty += penaltyShortPassword
			passwordWarnings = append(passwordWarnings,
				fmt.Sprintf("password is shorter than %d characters", minPasswordLength))
		}
		if looksLikeDefaultPassword(basic.Password, basic.Username) {
			passwordPenalty += penaltyDefaultPassword
			passwordWarnings = append(passwordWarnings, "password looks like a default or guessable value")
		}
		if passwordPenalty > maxPasswordPenalty {
			passwordPenalty = maxPasswordPenalty
		}
		audit.Score -= passwordPenalty
		audit.Warnings = append(audit.Warnings, passwordWarnings...)
	}

	if cfg.RateLimitPerMinute != nil && *cfg.RateLimitPerMinute > maxSafeRateLimit {
		penalize(penaltyExcessRateLimit,
			fmt.Sprintf("rate_limit_per_minute %d exceeds %d", *cfg.RateLimitPerMinute, maxSafeRateLimit))
	}

	switch {
	case cfg.RetryAttempts == nil:
		penalize(penaltyRetryPolicy, "no retry policy configured")
	case *cfg.RetryAttempts > maxSafeRetryAttempts:
		penalize(penaltyRetryPolicy,
			fmt.Sprintf("retry_attempts %d exceeds %d", *cfg.RetryAttempts, maxSafeRetryAttempts))
	}

	if audit.Score < 0 {
		audit.Score = 0
	}
	return audit
}

// staticRiskSignals lists non-fatal warnings and actionable suggestions for a valid configuration
func staticRiskSignals(systemType constants.SystemType, cfg *dtos.ConnectionConfig, settings *dtos.ImportSettings) (warnings, suggestions []string) {
	warnings = []string{}
	suggestions = []string{}

	if usesPlainHTTP(cfg.BaseURL) {
		warnings = append(warnings, "base_url uses plain HTTP; credentials and order data travel unencrypted")
		suggestions = append(suggestions, "Switch base_url to https")
	}
	if cfg.BaseURL == "" && !systemType.IsFileBased() {
		warnings = append(warnings, "no base_url configured for an endpoint-based system")
	}
	if cfg.TimeoutSeconds != nil && *cfg.TimeoutSeconds > maxSafeTimeoutSeconds {
		warnings = append(warnings,
			fmt.Sprintf("timeout_seconds %d is above %d; stalled requests will hold the import for a long time", *cfg.TimeoutSeconds, maxSafeTimeoutSeconds))
	}
	if settings != nil && settings.BatchSize != nil && *settings.BatchSize > maxSafeImportBatchSize {
		warnings = append(warnings,
			fmt.Sprintf("import_settings.batch_size %d is above %d; large batches make failed imports expensive to retry", *settings.BatchSize, maxSafeImportBatchSize))
	}
	if cfg.RateLimitPerMinute == nil {
		warnings = append(warnings, "no rate limit configured")
		suggestions = append(suggestions, "Set rate_limit_per_minute to match the ERP's published quota")
	}
	if cfg.RetryAttempts == nil {
		warnings = append(warnings, "no retry policy configured")
		suggestions = append(suggestions,
			fmt.Sprintf("Set retry_attempts (%d is a common starting point)", defaultSuggestedRetries))
	}
	if cfg.AuthType == constants.AuthTypeBasic {
		warnings = append(warnings, "basic authentication credentials are stored with the connection")
		suggestions = append(suggestions, "Prefer API key or OAuth2 authentication over basic auth")
	}
	if settings == nil || settings.NotificationEmail == "" {
		suggestions = append(suggestions, "Set import_settings.notification_email to be told about failed imports")
	}
	if settings == nil || settings.DuplicateHandling == "" {
		suggestions = append(suggestions, "Set import_settings.duplicate_handling explicitly (skip, update or create_new)")
	}

	return warnings, suggestions
}

func usesPlainHTTP(baseURL string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(baseURL)), "http://")
}

func looksLikeDefaultPassword(password, username string) bool {
	p := strings.ToLower(password)
	if defaultLookingPasswords[p] {
		return true
	}
	if username != "" && p == strings.ToLower(username) {
		return true
	}
	return strings.Contains(p, "password")
}
