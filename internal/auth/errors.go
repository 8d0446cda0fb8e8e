package auth

import "errors"

var (
	ErrMissingCredentials    = errors.New("authorization header required")
	ErrMalformedHeader       = errors.New("invalid authorization header format")
	ErrMalformedToken        = errors.New("malformed token")
	ErrBadSignature          = errors.New("invalid token signature")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenNotYetValid      = errors.New("token not yet valid")
	ErrInvalidToken          = errors.New("invalid token")
	ErrMalformedRefreshToken = errors.New("malformed refresh token")
	ErrEmptySecret           = errors.New("signing secret is empty")
	ErrMissingUserID         = errors.New("identity has no user id")
)

var gateErrors = []error{
	ErrMissingCredentials,
	ErrMalformedHeader,
	ErrMalformedToken,
	ErrBadSignature,
	ErrTokenExpired,
	ErrTokenNotYetValid,
	ErrInvalidToken,
}

// Reason returns the client-facing message for an authentication failure.
// Library details wrapped into err are never part of it.
func Reason(err error) string {
	for _, e := range gateErrors {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	return ErrInvalidToken.Error()
}
