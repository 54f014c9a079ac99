package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/GrantWise/factory-board-sub001/internal/common"
	"github.com/GrantWise/factory-board-sub001/internal/constants"
	"github.com/GrantWise/factory-board-sub001/internal/logging"
	"github.com/GrantWise/factory-board-sub001/internal/services"
)

// ErrorBody is the data payload of every failed admin call
type ErrorBody struct {
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// statusFor maps a service error code to its HTTP status
func statusFor(code string) int {
	switch code {
	case constants.ErrCodeValidation:
		return http.StatusBadRequest
	case constants.ErrCodeNotFound:
		return http.StatusNotFound
	case constants.ErrCodeStorage:
		return http.StatusInternalServerError
	case constants.ErrCodeDuplicateName,
		constants.ErrCodeDuplicateExternalID,
		constants.ErrCodeSyncStateExists,
		constants.ErrCodeDependentRecords,
		constants.ErrCodeLinkNotInConflict,
		constants.ErrCodeInvalidTransition,
		constants.ErrCodeImportNotRunning,
		constants.ErrCodeCounterRegression,
		constants.ErrCodeResolutionHistoryExists:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// handleServiceError maps service errors to appropriate HTTP responses
func handleServiceError(w http.ResponseWriter, r *http.Request, initTime time.Time, err error) {
	var svcErr *services.ServiceError
	if !errors.As(err, &svcErr) {
		logging.Error("Unhandled error in admin API", "path", r.URL.Path, "error", err.Error())
		common.RespondErrorWithData(w, initTime, "An unexpected error occurred",
			ErrorBody{Code: constants.ErrCodeStorage}, http.StatusInternalServerError)
		return
	}

	status := statusFor(svcErr.Code)
	if status == http.StatusInternalServerError {
		logging.Error("Admin API storage failure", "path", r.URL.Path, "error", err.Error())
	}

	common.RespondErrorWithData(w, initTime, svcErr.Error(),
		ErrorBody{Code: svcErr.Code, Field: svcErr.Field}, status)
}

// badRequest answers a malformed body or query parameter
func badRequest(w http.ResponseWriter, initTime time.Time, field, message string) {
	common.RespondErrorWithData(w, initTime, message,
		ErrorBody{Code: constants.ErrCodeValidation, Field: field}, http.StatusBadRequest)
}
