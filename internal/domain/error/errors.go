package error

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes for standardized API responses
const (
	// 4xxx - Client errors
	CodeValidation             = 4001
	CodeInvalidAmount          = 4002
	CodeInvalidCard            = 4003
	CodeDuplicateIdempotentKey = 4004
	CodeConstraintViolation    = 4005
	CodeUnauthorized           = 4010
	CodeForbidden              = 4030
	CodeLinkNotFound           = 4040
	CodeTransactionNotFound    = 4041
	CodeLinkInactive           = 4090
	CodeLinkExpired            = 4100
	CodeLinkExhausted          = 4101
	CodeLinkExhaustedRace      = 4102
	CodeRateLimited            = 4290

	// 5xxx - Server errors
	CodeInternalServer     = 5000
	CodeDatabaseConnection = 5001
	CodeGatewayTimeout     = 5040
	CodeGatewayUnavailable = 5030
)

// Base error types
var (
	// ErrValidation is returned when input fails structural validation
	ErrValidation = errors.New("validation failed")

	// ErrInvalidAmount is returned when a monetary amount is malformed or not positive
	ErrInvalidAmount = errors.New("invalid amount format")

	// ErrInvalidCard is returned when card details are structurally invalid
	ErrInvalidCard = errors.New("invalid card details")

	// ErrLinkNotFound is returned when no payment link exists for a token
	ErrLinkNotFound = errors.New("payment link not found")

	// ErrLinkInactive is returned when a payment link has been deactivated by its owner
	ErrLinkInactive = errors.New("payment link is inactive")

	// ErrLinkExpired is returned when a payment link is past its expiry time
	ErrLinkExpired = errors.New("payment link has expired")

	// ErrLinkExhausted is returned when a capped link has no remaining uses at pre-check time
	ErrLinkExhausted = errors.New("payment link has reached its maximum number of uses")

	// ErrLinkExhaustedConcurrently is recorded when another redemption took the last slot
	// between the pre-check and the finalize step
	ErrLinkExhaustedConcurrently = errors.New("payment link was exhausted by a concurrent redemption")

	// ErrGatewayTimeout is recorded when the authorization gateway did not answer in time
	ErrGatewayTimeout = errors.New("authorization gateway timed out")

	// ErrGatewayUnavailable is recorded when the authorization gateway could not be reached
	ErrGatewayUnavailable = errors.New("authorization gateway unavailable")

	// ErrTransactionNotFound is returned when the requested transaction doesn't exist
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInvalidStatusTransition is returned when a transaction state change is not allowed
	ErrInvalidStatusTransition = errors.New("invalid transaction status transition")

	// ErrTransactionFinalized is returned when a terminal transaction is written again
	ErrTransactionFinalized = errors.New("transaction already finalized")

	// ErrDuplicateIdempotencyKey is returned when an idempotency key was already used for a link
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")

	// ErrDuplicateLinkToken is returned when a new link's token is already taken
	ErrDuplicateLinkToken = errors.New("link token already taken")

	// ErrUnauthorized is returned when the caller is not authenticated
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the caller does not own the resource
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidRequest is returned when the request format is invalid
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInternalServer is returned for unexpected server-side errors
	ErrInternalServer = errors.New("internal server error")

	// ErrDatabaseConnection is returned when there's a problem talking to the database
	ErrDatabaseConnection = errors.New("database connection error")

	// ErrConstraintViolation is returned when a database constraint is violated
	ErrConstraintViolation = errors.New("database constraint violation")

	// ErrRateLimited is returned when a client exceeds its request budget
	ErrRateLimited = errors.New("rate limit exceeded")
)

// ErrorCode returns standardized error codes for known errors
func ErrorCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return CodeInvalidAmount
	case errors.Is(err, ErrInvalidCard):
		return CodeInvalidCard
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidRequest):
		return CodeValidation
	case errors.Is(err, ErrDuplicateIdempotencyKey):
		return CodeDuplicateIdempotentKey
	case errors.Is(err, ErrConstraintViolation):
		return CodeConstraintViolation
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrLinkNotFound):
		return CodeLinkNotFound
	case errors.Is(err, ErrTransactionNotFound):
		return CodeTransactionNotFound
	case errors.Is(err, ErrLinkInactive):
		return CodeLinkInactive
	case errors.Is(err, ErrLinkExpired):
		return CodeLinkExpired
	case errors.Is(err, ErrLinkExhaustedConcurrently):
		return CodeLinkExhaustedRace
	case errors.Is(err, ErrLinkExhausted):
		return CodeLinkExhausted
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, ErrGatewayTimeout):
		return CodeGatewayTimeout
	case errors.Is(err, ErrGatewayUnavailable):
		return CodeGatewayUnavailable
	case errors.Is(err, ErrDatabaseConnection):
		return CodeDatabaseConnection
	default:
		return CodeInternalServer
	}
}

// HTTPStatus maps a domain error to the HTTP status returned by the API
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidCard),
		errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrLinkNotFound), errors.Is(err, ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrLinkInactive),
		errors.Is(err, ErrLinkExhausted),
		errors.Is(err, ErrDuplicateIdempotencyKey):
		return http.StatusConflict
	case errors.Is(err, ErrLinkExpired):
		return http.StatusGone
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrDatabaseConnection):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FieldError describes one violated field of a request
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every violated field of a request rather than stopping at the first
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError creates an empty validation error to accumulate field violations into
func NewValidationError() *ValidationError {
	return &ValidationError{}
}

// Add records a violated field
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any field was recorded
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// OrNil returns the validation error if any field was recorded, nil otherwise
func (e *ValidationError) OrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// Error implements the error interface for ValidationError
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

// Is makes errors.Is(err, ErrValidation) hold for any ValidationError
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// FieldNames returns the names of all violated fields in the order they were recorded
func (e *ValidationError) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return names
}

// LogFields returns a map of fields for structured logging
func (e *ValidationError) LogFields() map[string]any {
	return map[string]any{
		"error_type": "validation_error",
		"fields":     e.FieldNames(),
		"error_code": CodeValidation,
	}
}

// LinkError represents a redemption rejected by a payment link's state before anything was persisted
type LinkError struct {
	LinkToken string
	Reason    string
	Err       error
}

// Error implements the error interface for LinkError
func (e *LinkError) Error() string {
	return fmt.Sprintf("payment link %s rejected redemption (%s): %v", e.LinkToken, e.Reason, e.Err)
}

// Unwrap returns the underlying error
func (e *LinkError) Unwrap() error {
	return e.Err
}

// LogFields returns a map of fields for structured logging
func (e *LinkError) LogFields() map[string]any {
	return map[string]any{
		"error_type": "link_error",
		"link_token": e.LinkToken,
		"reason":     e.Reason,
		"error":      e.Err.Error(),
		"error_code": ErrorCode(e.Err),
	}
}

// NewLinkError creates a detailed link rejection error
func NewLinkError(linkToken, reason string, err error) error {
	return &LinkError{
		LinkToken: linkToken,
		Reason:    reason,
		Err:       err,
	}
}

// TransitionError describes a rejected transaction status change
type TransitionError struct {
	TransactionID string
	From          string
	To            string
}

// Error implements the error interface
func (e *TransitionError) Error() string {
	return fmt.Sprintf("transaction %s cannot move from %s to %s", e.TransactionID, e.From, e.To)
}

// Is checks if the target error is an ErrInvalidStatusTransition
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidStatusTransition
}

// NewTransitionError creates a new detailed status transition error
func NewTransitionError(transactionID, from, to string) error {
	return &TransitionError{
		TransactionID: transactionID,
		From:          from,
		To:            to,
	}
}

// IsNotFoundError checks if the error is any "not found" type of error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrLinkNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}

// IsLinkRejection checks if the error is one of the pre-check rejections of a link
func IsLinkRejection(err error) bool {
	return errors.Is(err, ErrLinkInactive) ||
		errors.Is(err, ErrLinkExpired) ||
		errors.Is(err, ErrLinkExhausted)
}

// IsValidationError checks if the error is a structural validation failure
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsRetryable checks if a storage error may succeed when attempted again
func IsRetryable(err error) bool {
	return errors.Is(err, ErrDatabaseConnection)
}
