package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the only role the backend issues tokens for. The storefront
// itself is anonymous and never authenticates.
const RoleAdmin = "admin"

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	Username string
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to the admin panel.
type AccessTokenClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the claims carry the admin role.
func (c *AccessTokenClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}
