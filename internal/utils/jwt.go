package utils

import (
	"crypto/sha256" // Refresh token fingerprint
	"encoding/hex"  // Hex encoding of the fingerprint
	"time"          // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
)

// Claims carried by access and refresh tokens
type Claims struct {
	UserID               string `json:"userId"` // User ID
	Email                string `json:"email"`  // User email
	Role                 string `json:"role"`   // User role
	jwt.RegisteredClaims                        // Standard JWT claims
}

// TokenPair is returned on login and OTP verification
type TokenPair struct {
	AccessToken  string `json:"accessToken"`  // Short lived bearer token
	RefreshToken string `json:"refreshToken"` // Long lived token for /auth/refresh
}

// GenerateJWT creates a signed HS256 token for the given identity
func GenerateJWT(userID, email, role, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID, // Custom claim for user ID
		Email:  email,  // Custom claim for email
		Role:   role,   // Custom claim for role
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)), // Token expiry
			IssuedAt:  jwt.NewNumericDate(now),          // Issued at current time
			ID:        newTokenID(),                     // Unique per token so two pairs never collide
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	return token.SignedString([]byte(secret))                  // Sign the token with the secret
}

// ParseJWT parses and validates a JWT token string
func ParseJWT(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil // Return the secret key for validation
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	// Check for parsing errors
	if err != nil {
		return nil, err // Return error if parsing fails
	}
	// Validate token and extract claims
	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.UserID != "" {
		return claims, nil // Return claims if valid
	}
	// Return error if token is invalid
	return nil, jwt.ErrSignatureInvalid
}

// HashToken returns the hex SHA-256 of a token; only hashes of refresh tokens are stored
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
