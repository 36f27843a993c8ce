package users

import (
	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidInput           = "USERS_INVALID_INPUT"
	TextCodeUserNotFound           = "USERS_NOT_FOUND"
	TextCodeUserAlreadyActive      = "USERS_ALREADY_ACTIVE"
	TextCodeTokenExpired           = "USERS_TOKEN_EXPIRED"
	TextCodeWrongPassword          = "USERS_WRONG_PASSWORD"
	TextCodeSocialAccountNotFound  = "USERS_SOCIAL_ACCOUNT_NOT_FOUND"
	TextCodeSocialAlreadyActive    = "USERS_SOCIAL_ALREADY_ACTIVE"
	TextCodeResetSessionInvalid    = "USERS_RESET_SESSION_INVALID"
	TextCodeEmptyPassword          = "USERS_EMPTY_PASSWORD"
	TextCodeInvalidCreds           = "USERS_INVALID_CREDENTIALS"
	TextCodeNotificationFailed     = "USERS_NOTIFICATION_FAILED"
)

// ErrInvalidInput is returned for empty references or non-positive
// token expirations.
var ErrInvalidInput = errors.New("reference and expiration are required", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidInput).
	WithCode(errors.CodeBadRequest)

// ErrUserNotFound is returned when no account matches the given reference,
// id, or token.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrUserAlreadyActive is returned when a validation step targets an
// account that already completed it.
var ErrUserAlreadyActive = errors.New("user account already validated", errors.CategoryConflict).
	WithTextCode(TextCodeUserAlreadyActive).
	WithCode(errors.CodeConflict)

// ErrTokenExpired is returned when a validation token is past its
// expiration timestamp. The stale token is reported, not purged.
var ErrTokenExpired = errors.New("token already expired", errors.CategoryValidation).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeBadRequest)

// ErrWrongPassword is returned when the supplied current password does not
// match the persisted hash.
var ErrWrongPassword = errors.New("the old password does not match", errors.CategoryAuth).
	WithTextCode(TextCodeWrongPassword).
	WithCode(errors.CodeUnauthorized)

// ErrSocialAccountNotFound covers both a missing (provider, reference)
// pair and a token mismatch: the two cases must stay indistinguishable so
// the endpoint cannot be used as a token oracle.
var ErrSocialAccountNotFound = errors.New("account not found for the given token and provider", errors.CategoryNotFound).
	WithTextCode(TextCodeSocialAccountNotFound).
	WithCode(errors.CodeNotFound)

// ErrSocialAlreadyActive is returned when re-validating a validated
// social account.
var ErrSocialAlreadyActive = errors.New("social account already validated", errors.CategoryConflict).
	WithTextCode(TextCodeSocialAlreadyActive).
	WithCode(errors.CodeConflict)

// ErrResetSessionInvalid is returned when a change-password session token
// cannot be verified.
var ErrResetSessionInvalid = errors.New("reset session is invalid", errors.CategoryAuth).
	WithTextCode(TextCodeResetSessionInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty passwords before they reach bcrypt.
var ErrNoEmptyString = errors.New("password can not be an empty string", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the generic credential mismatch error.
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)
