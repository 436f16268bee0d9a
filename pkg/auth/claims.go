package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pennyekart/pennyekart-backend/pkg/enums"
)

// AccessTokenPayload is what the dev token minter needs.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.UserRole
	JTI    string
}

// AccessTokenClaims are the claims the API trusts. Identity providers that
// only set "sub" are accepted; user_id wins when both are present.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id,omitempty"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

func (c *AccessTokenClaims) resolveUserID() error {
	if c.UserID != uuid.Nil {
		return nil
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil || id == uuid.Nil {
		return ErrMissingSubject
	}
	c.UserID = id
	return nil
}
