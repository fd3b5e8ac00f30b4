package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidFileType  ErrorCode = "INVALID_FILE_TYPE"
	ErrCodeFileTooLarge     ErrorCode = "FILE_TOO_LARGE"
	ErrCodeInvalidComment   ErrorCode = "INVALID_COMMENT"
	ErrCodeInvalidRole      ErrorCode = "INVALID_ROLE"

	ErrCodeFaxNotFound        ErrorCode = "FAX_NOT_FOUND"
	ErrCodeUserNotFound       ErrorCode = "USER_NOT_FOUND"
	ErrCodeDepartmentNotFound ErrorCode = "DEPARTMENT_NOT_FOUND"
	ErrCodeWorkflowNotFound   ErrorCode = "WORKFLOW_NOT_FOUND"

	ErrCodeAccessDenied       ErrorCode = "ACCESS_DENIED"
	ErrCodeManagerOnly        ErrorCode = "MANAGER_ONLY"
	ErrCodeAdminOnly          ErrorCode = "ADMIN_ONLY"
	ErrCodeUploadRoleRequired ErrorCode = "UPLOAD_ROLE_REQUIRED"
	ErrCodeOwnRoleImmutable   ErrorCode = "OWN_ROLE_IMMUTABLE"

	ErrCodeIllegalTransition   ErrorCode = "ILLEGAL_STATUS_TRANSITION"
	ErrCodeNoPendingSignature  ErrorCode = "NO_PENDING_SIGNATURE"
	ErrCodeDuplicateEntry      ErrorCode = "DUPLICATE_ENTRY"
	ErrCodeDepartmentInUse     ErrorCode = "DEPARTMENT_IN_USE"
	ErrCodeUserReferenced      ErrorCode = "USER_REFERENCED"
	ErrCodeInvalidDepartment   ErrorCode = "INVALID_DEPARTMENT"
	ErrCodeInvalidCredentials  ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken        ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired        ErrorCode = "TOKEN_EXPIRED"
	ErrCodeInternalError       ErrorCode = "INTERNAL_ERROR"
	ErrCodeEmptySignerList     ErrorCode = "EMPTY_SIGNER_LIST"
	ErrCodeSignatureDataNeeded ErrorCode = "SIGNATURE_DATA_REQUIRED"
)

// AppError is the single error currency between services and the HTTP
// boundary. Handlers map it straight to a status code and a short
// human-readable message; the Cause never leaves the process.
type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
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

// NewConflictError reports state conflicts (illegal transitions, duplicate
// unique keys). The client-facing status is 400, matching the taxonomy of
// the rest of the API.
func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       ErrCodeInternalError,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrFaxNotFound        = NewNotFoundError("fax not found", ErrCodeFaxNotFound)
	ErrUserNotFound       = NewNotFoundError("user not found", ErrCodeUserNotFound)
	ErrDepartmentNotFound = NewNotFoundError("department not found", ErrCodeDepartmentNotFound)
	ErrWorkflowNotFound   = NewNotFoundError("workflow not found", ErrCodeWorkflowNotFound)

	ErrAccessDenied = NewForbiddenError("access denied", ErrCodeAccessDenied)
	ErrManagerOnly  = NewForbiddenError("manager role required", ErrCodeManagerOnly)
	ErrAdminOnly    = NewForbiddenError("administrator role required", ErrCodeAdminOnly)
	ErrUploadRole   = NewForbiddenError("only fax intake, manager, or admin users can upload faxes", ErrCodeUploadRoleRequired)

	ErrIllegalTransition  = NewConflictError("illegal status transition", ErrCodeIllegalTransition)
	ErrNoPendingSignature = NewConflictError("no pending signature found for this user", ErrCodeNoPendingSignature)

	ErrInvalidCredentials = NewUnauthorizedError("invalid credentials", ErrCodeInvalidCredentials)
	ErrInvalidToken       = NewUnauthorizedError("invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("token expired", ErrCodeTokenExpired)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
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
