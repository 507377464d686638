package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload is what the shopper session needs in an access token.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Email  string
	// JTI keys the refresh session in Redis. Generated when empty.
	JTI string
}

type AccessTokenClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	jwt.RegisteredClaims
}

var (
	errSubjectMismatch = errors.New("token subject does not match user_id")
	errMissingJTI      = errors.New("token has no session id")
)

// Validate runs after the registered-claim checks. A token without a jti
// cannot be tied to a refresh session, and the subject must name the same
// shopper as user_id.
func (c AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil || c.Subject != c.UserID.String() {
		return errSubjectMismatch
	}
	if c.ID == "" {
		return errMissingJTI
	}
	return nil
}
