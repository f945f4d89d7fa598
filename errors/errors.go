package errors

import (
	"errors"
	"fmt"
)

// Error is the typed error used across the credential and stats pipeline.
// Code is one of the constants below; Err optionally wraps the underlying
// cause (provider response, storage failure, decrypt failure).
type Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	Platform    string `json:"platform,omitempty"`
	Err         error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Description, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Error codes for the credential lifecycle and stats taxonomy.
const (
	ReauthRequired    = "reauth_required"
	AuthFailure       = "auth_error"
	TransientProvider = "transient_provider"
	ValidationFailure = "validation_error"
	StorageFailure    = "storage_error"
)

// NewReauthRequired signals that no usable credential exists for the
// platform and the user must re-run the authorization flow.
func NewReauthRequired(platform string, cause error) *Error {
	return &Error{
		Code:        ReauthRequired,
		Description: "no usable credential, re-authorization required",
		Platform:    platform,
		Err:         cause,
	}
}

// NewAuthError marks a revoked or invalid refresh token, or a malformed
// refresh response. The credential is evicted on this error.
func NewAuthError(platform, description string, cause error) *Error {
	return &Error{Code: AuthFailure, Description: description, Platform: platform, Err: cause}
}

// NewTransientProvider marks a provider failure that does not touch the
// stored credential: network errors, 5xx responses, rate limits.
func NewTransientProvider(platform, description string, cause error) *Error {
	return &Error{Code: TransientProvider, Description: description, Platform: platform, Err: cause}
}

// NewValidationError marks a corrupt or unparseable persisted payload.
// Treated like an auth failure: the record is deleted.
func NewValidationError(description string, cause error) *Error {
	return &Error{Code: ValidationFailure, Description: description, Err: cause}
}

// NewStorageError wraps a read/write failure against one of the stores.
func NewStorageError(description string, cause error) *Error {
	return &Error{Code: StorageFailure, Description: description, Err: cause}
}

func hasCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsReauthRequired reports whether err carries the reauth_required code.
func IsReauthRequired(err error) bool { return hasCode(err, ReauthRequired) }

// IsAuthError reports whether err carries the auth_error code.
func IsAuthError(err error) bool { return hasCode(err, AuthFailure) }

// IsTransient reports whether err carries the transient_provider code.
func IsTransient(err error) bool { return hasCode(err, TransientProvider) }

// IsValidation reports whether err carries the validation_error code.
func IsValidation(err error) bool { return hasCode(err, ValidationFailure) }

// IsStorage reports whether err carries the storage_error code.
func IsStorage(err error) bool { return hasCode(err, StorageFailure) }
