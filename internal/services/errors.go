package services

import (
	"errors"
	"fmt"

	"github.com/GrantWise/factory-board-sub001/internal/constants"
	"github.com/GrantWise/factory-board-sub001/internal/models/dtos"
)

// ServiceError is returned by every ERP sync service. Callers branch on Code
// with errors.Is against the exported sentinels below.
type ServiceError struct {
	Code    string
	Message string
	Field   string
	Err     error
}

func (e *ServiceError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is matches any ServiceError carrying the same code
func (e *ServiceError) Is(target error) bool {
	var t *ServiceError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func sentinel(code string) *ServiceError {
	return &ServiceError{Code: code, Message: constants.GetErrorMessage(code)}
}

var (
	ErrValidation              = sentinel(constants.ErrCodeValidation)
	ErrNotFound                = sentinel(constants.ErrCodeNotFound)
	ErrStorage                 = sentinel(constants.ErrCodeStorage)
	ErrDuplicateName           = sentinel(constants.ErrCodeDuplicateName)
	ErrDuplicateExternalID     = sentinel(constants.ErrCodeDuplicateExternalID)
	ErrSyncStateExists         = sentinel(constants.ErrCodeSyncStateExists)
	ErrDependentRecords        = sentinel(constants.ErrCodeDependentRecords)
	ErrLinkNotInConflict       = sentinel(constants.ErrCodeLinkNotInConflict)
	ErrInvalidTransition       = sentinel(constants.ErrCodeInvalidTransition)
	ErrImportNotRunning        = sentinel(constants.ErrCodeImportNotRunning)
	ErrCounterRegression       = sentinel(constants.ErrCodeCounterRegression)
	ErrResolutionHistoryExists = sentinel(constants.ErrCodeResolutionHistoryExists)
)

func validationError(field, message string) *ServiceError {
	return &ServiceError{Code: constants.ErrCodeValidation, Field: field, Message: message}
}

func notFound(what, id string) *ServiceError {
	return &ServiceError{Code: constants.ErrCodeNotFound, Message: fmt.Sprintf("%s %s not found", what, id)}
}

func storageError(message string, err error) *ServiceError {
	return &ServiceError{Code: constants.ErrCodeStorage, Message: message, Err: err}
}

// fromFieldError lifts a document decode failure into a validation error
func fromFieldError(err error) *ServiceError {
	var fe *dtos.FieldError
	if errors.As(err, &fe) {
		return validationError(fe.Field, fe.Message)
	}
	return &ServiceError{Code: constants.ErrCodeValidation, Message: "invalid document", Err: err}
}

// passThrough keeps ServiceErrors intact and wraps anything else as storage
func passThrough(message string, err error) error {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return storageError(message, err)
}
