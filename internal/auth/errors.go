package auth

import (
	"fmt"
	"strings"

	"github.com/conneroisu/syllabus/internal/errors"
)

// Messages shown to the user. Validation messages are returned verbatim.
const (
	MsgEmailRequired    = "email is required"
	MsgPasswordRequired = "password is required"
	MsgUsernameRequired = "username is required"
	MsgPasswordMismatch = "passwords do not match"
	MsgNoUser           = "no user logged in"
	MsgNoToken          = "no token provided"
	MsgInvalidResetLink = "invalid link, please request a reset link again."
	MsgInvalidMode      = "invalid auth mode"

	MsgSignedIn          = "successfully signed in!"
	MsgSignedUp          = "successfully signed up!"
	MsgSignedOut         = "successfully signed out!"
	MsgVerificationSent  = "verification sent!"
	MsgVerified          = "successfully verified!"
	MsgResetLinkSent     = "password recovery link sent!"
	MsgPasswordReset     = "password reset!"
	MsgUsernameChanged   = "username changed!"
	MsgSubmissionPending = "a submission is already in progress"
)

// FailureKind tells where a failure came from.
type FailureKind int

const (
	// KindValidation failures are caught before the provider is called.
	KindValidation FailureKind = iota
	// KindProvider failures carry a normalized provider error code.
	KindProvider
)

func (k FailureKind) String() string {
	if k == KindValidation {
		return "validation"
	}
	return "provider"
}

// Failure is a user-facing action failure.
type Failure struct {
	Kind   FailureKind
	Reason string
}

// Error returns the reason verbatim.
func (f *Failure) Error() string { return f.Reason }

func validationFailure(reason string) *Failure {
	return &Failure{Kind: KindValidation, Reason: reason}
}

// ErrInFlight is returned while an earlier submission from the same browser
// session is still pending.
var ErrInFlight = &Failure{Kind: KindValidation, Reason: MsgSubmissionPending}

// Provider error codes, in "domain/reason" form.
const (
	CodeUserNotFound       = "auth/user-not-found"
	CodeWrongPassword      = "auth/wrong-password"
	CodeInvalidCredential  = "auth/invalid-credential"
	CodeEmailInUse         = "auth/email-already-in-use"
	CodeWeakPassword       = "auth/weak-password"
	CodeInvalidEmail       = "auth/invalid-email"
	CodeInvalidActionCode  = "auth/invalid-action-code"
	CodeExpiredActionCode  = "auth/expired-action-code"
	CodeUserDisabled       = "auth/user-disabled"
	CodeTooManyRequests    = "auth/too-many-requests"
	CodeInvalidUserToken   = "auth/invalid-user-token"
	CodeUserTokenExpired   = "auth/user-token-expired"
	CodeNetworkRequestFail = "auth/network-request-failed"
	CodeInternalError      = "auth/internal-error"
)

// ProviderError is a failure reported by an identity provider.
type ProviderError struct {
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewProviderError creates a ProviderError.
func NewProviderError(code, message string) *ProviderError {
	return &ProviderError{Code: code, Message: message}
}

// NormalizeErrorCode turns a "domain/reason-words" code into the phrase
// shown to users: "auth/user-not-found" becomes "user not found".
func NormalizeErrorCode(code string) string {
	if i := strings.Index(code, "/"); i >= 0 {
		code = code[i+1:]
	}
	return strings.ReplaceAll(code, "-", " ")
}

// providerFailure converts any provider error into a Failure. Errors that
// are not ProviderErrors are reported as internal errors.
func providerFailure(err error) *Failure {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return &Failure{Kind: KindProvider, Reason: NormalizeErrorCode(pe.Code)}
	}
	return &Failure{Kind: KindProvider, Reason: NormalizeErrorCode(CodeInternalError)}
}

// IsFailure reports whether err is a Failure of kind.
func IsFailure(err error, kind FailureKind) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == kind
}
