// Package domain provides shared domain-level errors for the request pipeline.
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict (optimistic locking).
var ErrConflict = errors.New("conflict: resource was modified by another request")

// Error tokens surfaced to clients in {token, message} failure bodies.
// Clients key differential UX off the token, not the message.
const (
	TokenInvalidTenant      = "INVALID_TENANT"
	TokenTenantNameMismatch = "TENANT_NAME_MISMATCH"
	TokenTenantRefreshed    = "TENANT_REFRESHED"
	TokenInvalidToken       = "INVALID_TOKEN"
	TokenUnauthorized       = "UNAUTHORIZED"
	TokenRouteNotFound      = "ROUTE_NOT_FOUND"
	TokenGenericError       = "GENERIC_ERROR"
)

// Error is a client-visible pipeline failure. Token identifies the specific
// cause; Status is the HTTP status the dispatcher emits.
type Error struct {
	Token   string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Token
	}
	return fmt.Sprintf("%s: %s", e.Token, e.Message)
}

// NewError builds an Error with an explicit token, status and message.
func NewError(token string, status int, message string) *Error {
	return &Error{Token: token, Status: status, Message: message}
}

// ErrInvalidTenant reports a failed tenant detection.
func ErrInvalidTenant() *Error {
	return NewError(TokenInvalidTenant, http.StatusBadRequest, "Tenant detection failed!")
}

// ErrTenantNameMismatch forces a client logout after a rename or merge left
// the URL host pointing at a different tenant than the credential.
func ErrTenantNameMismatch() *Error {
	return NewError(TokenTenantNameMismatch, http.StatusUnauthorized,
		"Forcing logout due to tenant names mismatch between request url and auth token!")
}

// ErrTenantRefreshed forces a client logout after a tenant settings change
// invalidated all outstanding credentials.
func ErrTenantRefreshed() *Error {
	return NewError(TokenTenantRefreshed, http.StatusUnauthorized, "Forcing logout due to tenant refresh!")
}

// ErrInvalidToken reports a missing or undecryptable credential.
func ErrInvalidToken() *Error {
	return NewError(TokenInvalidToken, http.StatusUnauthorized, "Invalid token supplied for service")
}

// ErrUnauthorized reports an api-token or path-restriction failure.
func ErrUnauthorized() *Error {
	return NewError(TokenUnauthorized, http.StatusUnauthorized, "Access is denied due to invalid credentials")
}

// ErrRouteNotFound reports an unmatched route.
func ErrRouteNotFound() *Error {
	return NewError(TokenRouteNotFound, http.StatusNotFound, "Route not found")
}

// AsError extracts an *Error from err's chain, or wraps err as a generic 500.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		if e.Token == "" {
			e.Token = TokenGenericError
		}
		if e.Status == 0 {
			e.Status = http.StatusInternalServerError
		}
		return e
	}
	return NewError(TokenGenericError, http.StatusInternalServerError, "internal server error")
}
