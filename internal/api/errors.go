package api

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure for API consumers. Every error returned from a
// lifecycle operation maps to exactly one kind, which the HTTP layer turns into
// a structured (kind, message) response.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindOwnership  ErrorKind = "ownership"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindUpstream   ErrorKind = "upstream"
	KindInternal   ErrorKind = "internal"
)

// ValidationError reports a request that was rejected before any cluster
// object was touched.
type ValidationError struct {
	// Field is the offending input field, empty when the error is not tied to one.
	Field string

	// Message describes what is wrong with the input.
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Kind returns KindValidation.
func (e *ValidationError) Kind() ErrorKind { return KindValidation }

// NewValidationError creates a ValidationError for the given field.
//
// Example:
//
//	return api.NewValidationError("name", "must not be empty")
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// OwnershipError reports that a bot exists but belongs to another tenant.
// It is never reported as a NotFoundError.
type OwnershipError struct {
	BotID  string
	Tenant string
}

// Error implements the error interface for OwnershipError.
func (e *OwnershipError) Error() string {
	return fmt.Sprintf("bot %s is not owned by tenant %s", e.BotID, e.Tenant)
}

// Kind returns KindOwnership.
func (e *OwnershipError) Kind() ErrorKind { return KindOwnership }

// NewOwnershipError creates an OwnershipError.
func NewOwnershipError(botID, tenant string) *OwnershipError {
	return &OwnershipError{BotID: botID, Tenant: tenant}
}

// NotFoundError represents a cluster object that does not exist.
//
// The error includes resource type and name for precise error reporting and
// supports custom error messages for specific use cases.
type NotFoundError struct {
	// ResourceType categorizes the object that was not found
	// (e.g., "deployment", "configmap", "bot", "pod metrics")
	ResourceType string

	// ResourceName is the specific identifier of the object that was not found
	ResourceName string

	// Message provides a custom error message if the default format is insufficient
	Message string
}

// Error implements the error interface for NotFoundError.
// Returns either the custom message if provided, or a formatted default message
// using the resource type and name.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s not found", e.ResourceType, e.ResourceName)
}

// Kind returns KindNotFound.
func (e *NotFoundError) Kind() ErrorKind { return KindNotFound }

// NewNotFoundError creates a new NotFoundError with the specified resource type and name.
//
// Example:
//
//	return api.NewNotFoundError("deployment", "bot-echo")
func NewNotFoundError(resourceType, resourceName string) *NotFoundError {
	return &NotFoundError{
		ResourceType: resourceType,
		ResourceName: resourceName,
	}
}

// NewNotFoundErrorWithMessage creates a new NotFoundError with a custom message.
func NewNotFoundErrorWithMessage(resourceType, resourceName, message string) *NotFoundError {
	return &NotFoundError{
		ResourceType: resourceType,
		ResourceName: resourceName,
		Message:      message,
	}
}

// NewBotNotFoundError creates a not found error for a bot id.
func NewBotNotFoundError(id string) *NotFoundError {
	return NewNotFoundError("bot", id)
}

// ConflictError reports a request that clashes with the current cluster state,
// e.g. deploying a name that already exists or replacing code of a bot whose
// deployment disappeared.
type ConflictError struct {
	Message string
	Err     error
}

// Error implements the error interface for ConflictError.
func (e *ConflictError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *ConflictError) Unwrap() error { return e.Err }

// Kind returns KindConflict.
func (e *ConflictError) Kind() ErrorKind { return KindConflict }

// NewConflictError creates a ConflictError wrapping an optional cause.
func NewConflictError(message string, cause error) *ConflictError {
	return &ConflictError{Message: message, Err: cause}
}

// NewRedeployRequiredError creates the conflict returned when an update needs a
// deployment that was removed out-of-band.
func NewRedeployRequiredError(botID string, cause error) *ConflictError {
	return NewConflictError(
		fmt.Sprintf("deployment for bot %s no longer exists; redeploy required", botID),
		cause,
	)
}

// UpstreamError carries a control-plane failure with its HTTP status code and
// message, passed through unchanged.
type UpstreamError struct {
	// Operation names the call that failed, e.g. "create deployment bot-echo".
	Operation string

	// StatusCode is the HTTP status returned by the control plane, 0 when the
	// request never got a response.
	StatusCode int

	Err error
}

// Error implements the error interface for UpstreamError.
func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed (status %d): %v", e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying control-plane error.
func (e *UpstreamError) Unwrap() error { return e.Err }

// Kind returns KindUpstream.
func (e *UpstreamError) Kind() ErrorKind { return KindUpstream }

// NewUpstreamError creates an UpstreamError.
func NewUpstreamError(operation string, statusCode int, err error) *UpstreamError {
	return &UpstreamError{Operation: operation, StatusCode: statusCode, Err: err}
}

// kinded is implemented by every error type in this package.
type kinded interface {
	Kind() ErrorKind
}

// KindOf returns the kind of the first typed error in err's chain, or
// KindInternal when err carries none.
func KindOf(err error) ErrorKind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindInternal
}

// IsNotFound checks if an error is a NotFoundError using error unwrapping.
//
// Example:
//
//	bot, err := manager.Get(ctx, id, tenant)
//	if api.IsNotFound(err) {
//	    // Handle not found case
//	}
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// IsOwnership checks if an error is an OwnershipError.
func IsOwnership(err error) bool {
	var ownershipErr *OwnershipError
	return errors.As(err, &ownershipErr)
}

// IsValidation checks if an error is a ValidationError.
func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsConflict checks if an error is a ConflictError.
func IsConflict(err error) bool {
	var conflictErr *ConflictError
	return errors.As(err, &conflictErr)
}

// IsUpstream checks if an error is an UpstreamError.
func IsUpstream(err error) bool {
	var upstreamErr *UpstreamError
	return errors.As(err, &upstreamErr)
}

// ErrorResponse is the structured body returned for every failed API call.
type ErrorResponse struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// NewErrorResponse builds the structured (kind, message) pair for err.
func NewErrorResponse(err error) ErrorResponse {
	return ErrorResponse{Kind: KindOf(err), Message: err.Error()}
}

// Error lets ErrorResponse travel through the API client as an error value.
func (r ErrorResponse) Error() string {
	return fmt.Sprintf("%s: %s", r.Kind, r.Message)
}
