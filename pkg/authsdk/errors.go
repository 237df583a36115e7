package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/aussiebroadwan/currex/pkg/httpx"
)

// ============================================================================
// Error Codes
// ============================================================================

const (
	ErrorCodeInvalidRequest    = "invalid_request"
	ErrorCodeInvalidGrant      = "invalid_grant"
	ErrorCodeInvalidScope      = "invalid_scope"
	ErrorCodeInvalidToken      = "invalid_token"
	ErrorCodeInsufficientScope = "insufficient_scope"
	ErrorCodeAccessDenied      = "access_denied"
	ErrorCodeNotFound          = "not_found"
	ErrorCodeValidation        = "validation_error"
	ErrorCodeRateLimited       = "rate_limited"
	ErrorCodeServerError       = "server_error"
)

// ============================================================================
// APIError - error type shared by the server and the SDK
// ============================================================================

// APIError is the JSON error body returned by every endpoint of the
// service. Handlers write it with WriteError; the SDK returns it as the
// error of a failed call.
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is a machine readable error code (e.g. "invalid_token")
	Code string `json:"error"`

	// Description is the human readable reason, e.g. "Expired token"
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes this APIError to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, e)
}

// WithDescription returns a copy of e carrying a different description.
func (e *APIError) WithDescription(desc string) *APIError {
	out := *e
	out.Description = desc
	return &out
}

// NewAPIError creates an APIError with the given status, code and description.
func NewAPIError(statusCode int, code, description string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Description: description}
}

// ============================================================================
// Predefined Errors
// ============================================================================

var (
	// ErrInvalidRequest is returned when a required field is missing or malformed.
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidFormBody is returned when the form body cannot be parsed.
	ErrInvalidFormBody = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "invalid form body",
	}

	// ErrInvalidContentType is returned when a form endpoint receives
	// something other than application/x-www-form-urlencoded.
	ErrInvalidContentType = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "content-type must be application/x-www-form-urlencoded",
	}

	// ErrUnsupportedGrantType is returned by the refresh endpoint when
	// grant_type is not "refresh_token".
	ErrUnsupportedGrantType = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: `grant_type must be "refresh_token"`,
	}

	// ErrUserNotFound is returned by the token endpoints for an unknown username.
	ErrUserNotFound = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidGrant,
		Description: "User not found",
	}

	// ErrInvalidCredentials is returned when the password does not match.
	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidGrant,
		Description: "Incorrect username or password",
	}

	// ErrUserInactive is returned when a disabled user tries to authenticate.
	ErrUserInactive = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeAccessDenied,
		Description: "User is not active",
	}

	// ErrOwnerMismatch is returned when a refresh token belongs to someone else.
	ErrOwnerMismatch = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeAccessDenied,
		Description: "Token owner does not match with client from request",
	}

	// ErrRevokedRefreshToken is returned when a revoked refresh token is
	// presented. Every token of that device has been revoked as well.
	ErrRevokedRefreshToken = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeAccessDenied,
		Description: "Revoked token. Authentication process should be repeated.",
	}

	// ErrInvalidScope is returned when a requested scope is unknown or not
	// available to the user's category.
	ErrInvalidScope = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidScope,
		Description: "requested scope is invalid",
	}

	// ErrInvalidToken is the 400 returned by the refresh endpoint for a token
	// that failed validation. The description names the failure.
	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidGrant,
		Description: "Invalid token",
	}

	// ErrAccessDenied is returned when a token lacks the required scopes.
	ErrAccessDenied = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeInsufficientScope,
		Description: "Access denied",
	}

	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "not found",
	}

	// ErrServerError is returned on unexpected failures.
	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// ============================================================================
// Validation Errors
// ============================================================================

// ValidationErrorResponse lists every complaint per form field, e.g.
// {"errors": {"password": ["Passwords do not match"]}}.
type ValidationErrorResponse struct {
	StatusCode int                 `json:"-"`
	Errors     map[string][]string `json:"errors"`
}

// Error implements the error interface.
func (e *ValidationErrorResponse) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for f := range e.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e.Errors[f], " "))
	}
	return fmt.Sprintf("%s: %s", ErrorCodeValidation, strings.Join(parts, "; "))
}

// WriteError writes the validation errors with the response's status code.
func (e *ValidationErrorResponse) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, e)
}

// ============================================================================
// Error Parsing Helpers
// ============================================================================

// parseErrorResponse turns a non-2xx response into a typed error. Returns
// nil for 2xx responses.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		apiErr.StatusCode = resp.StatusCode
		return &apiErr
	}

	var valErr ValidationErrorResponse
	if err := json.Unmarshal(body, &valErr); err == nil && len(valErr.Errors) > 0 {
		valErr.StatusCode = resp.StatusCode
		return &valErr
	}

	// Rate limiter and mux responses are plain text.
	code := ErrorCodeServerError
	if resp.StatusCode == http.StatusTooManyRequests {
		code = ErrorCodeRateLimited
	}
	desc := strings.TrimSpace(string(body))
	if desc == "" {
		desc = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return &APIError{StatusCode: resp.StatusCode, Code: code, Description: desc}
}
