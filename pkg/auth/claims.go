package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dealerworks/dms-backend/pkg/enums"
)

// AccessTokenPayload is the input for minting a staff access token.
type AccessTokenPayload struct {
	UserID      uuid.UUID
	Role        enums.StaffRole
	DisplayName string
	// JTI is generated when empty.
	JTI string
}

// AccessTokenClaims is the typed JWT carried by dealership staff.
type AccessTokenClaims struct {
	UserID      uuid.UUID       `json:"user_id"`
	Role        enums.StaffRole `json:"role"`
	DisplayName string          `json:"name,omitempty"`
	jwt.RegisteredClaims
}
