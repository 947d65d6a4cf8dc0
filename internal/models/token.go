package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the access token payload. The college_id inside the token is
// informational only; the tenant guard re-derives it from the users table on
// every request so deactivated or transferred accounts lose access before the
// token expires.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	CollegeID string   `json:"college_id"`
	Email     string   `json:"email"`
	jwt.RegisteredClaims
}
