package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount      ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidCurrency    ErrorCode = "INVALID_CURRENCY"
	ErrCodeInvalidDescription ErrorCode = "INVALID_DESCRIPTION"
	ErrCodeInvalidDate        ErrorCode = "INVALID_DATE"
	ErrCodeInvalidSplitType   ErrorCode = "INVALID_SPLIT_TYPE"
	ErrCodeInvalidSplit       ErrorCode = "INVALID_SPLIT"
	ErrCodeNegativeShare      ErrorCode = "NEGATIVE_SHARE"
	ErrCodeDuplicateMember    ErrorCode = "DUPLICATE_PARTICIPANT"
	ErrCodeMissingManual      ErrorCode = "MISSING_MANUAL_AMOUNT"
	ErrCodeUnknownMember      ErrorCode = "UNKNOWN_PARTICIPANT"
	ErrCodeManualSumMismatch  ErrorCode = "MANUAL_SUM_MISMATCH"
	ErrCodeNoParticipants     ErrorCode = "NO_PARTICIPANTS"
	ErrCodeInvalidPagination  ErrorCode = "INVALID_PAGINATION"
	ErrCodeInvalidFilter      ErrorCode = "INVALID_FILTER"
	ErrCodeInvalidRequestBody ErrorCode = "INVALID_REQUEST_BODY"

	ErrCodeTripNotFound    ErrorCode = "TRIP_NOT_FOUND"
	ErrCodeExpenseNotFound ErrorCode = "EXPENSE_NOT_FOUND"
	ErrCodeShareNotFound   ErrorCode = "SHARE_NOT_FOUND"
	ErrCodeMessageNotFound ErrorCode = "MESSAGE_NOT_FOUND"

	ErrCodeNotTripMember     ErrorCode = "NOT_TRIP_MEMBER"
	ErrCodeNotContributor    ErrorCode = "NOT_CONTRIBUTOR"
	ErrCodeNotTripOwner      ErrorCode = "NOT_TRIP_OWNER"
	ErrCodeCannotPayShare    ErrorCode = "CANNOT_PAY_SHARE"
	ErrCodeShareAlreadyPaid  ErrorCode = "SHARE_ALREADY_PAID"
	ErrCodeMemberAlreadyJoin ErrorCode = "MEMBER_ALREADY_JOINED"

	ErrCodeMissingToken ErrorCode = "MISSING_TOKEN"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
		messages := make([]string, len(validationErrors.Errors))
		for i, err := range validationErrors.Errors {
			messages[i] = err.Message
		}
		return strings.Join(messages, "; ")
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on type and code so wrapped sentinels compare equal.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithCause returns a copy; sentinels are shared and must not be mutated.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

var (
	ErrTripNotFound    = NewNotFoundError("Trip not found", ErrCodeTripNotFound)
	ErrExpenseNotFound = NewNotFoundError("Expense not found", ErrCodeExpenseNotFound)
	ErrShareNotFound   = NewNotFoundError("Member has no share on this expense", ErrCodeShareNotFound)
	ErrMessageNotFound = NewNotFoundError("Chat message not found", ErrCodeMessageNotFound)

	ErrNotTripMember  = NewForbiddenError("actor is not a member of this trip", ErrCodeNotTripMember)
	ErrNotContributor = NewForbiddenError("only the contributor can modify this expense", ErrCodeNotContributor)
	ErrNotTripOwner   = NewForbiddenError("only the trip owner can manage members", ErrCodeNotTripOwner)
	ErrCannotPayShare = NewForbiddenError("only the share owner or the contributor can mark it paid", ErrCodeCannotPayShare)

	ErrShareAlreadyPaid    = NewConflictError("share already paid", ErrCodeShareAlreadyPaid)
	ErrMemberAlreadyJoined = NewConflictError("user is already a member of this trip", ErrCodeMemberAlreadyJoin)

	ErrMissingToken = NewUnauthorizedError("Missing bearer token", ErrCodeMissingToken)
	ErrInvalidToken = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
