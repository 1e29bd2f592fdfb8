package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/cryptodash/coin-backend/models"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// tokenLifetime matches the original client's session length.
const tokenLifetime = 20 * 24 * time.Hour

const userLocalsKey = "auth_user"

// UserClaims is the JWT payload issued at signup and login.
type UserClaims struct {
	ID        int    `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies the access tokens used by the API.
type TokenIssuer struct {
	secret []byte
}

// NewTokenIssuer creates a token issuer with the given HMAC secret
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret)}
}

// GenerateToken issues a signed token for the user, valid for 20 days
func (t *TokenIssuer) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := UserClaims{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// ParseToken verifies the signature and expiry and returns the claims
func (t *TokenIssuer) ParseToken(tokenString string) (*UserClaims, error) {
	claims := &UserClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// RequireAuth returns a Fiber middleware that rejects requests without a
// valid bearer token and stores the verified claims in request locals.
func (t *TokenIssuer) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// The token is the second word of the header ("Bearer <token>");
		// a header without one is treated the same as no header at all.
		parts := strings.SplitN(c.Get("Authorization"), " ", 2)
		if len(parts) != 2 || parts[1] == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Access token required",
			})
		}

		claims, err := t.ParseToken(parts[1])
		if err != nil {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}

		c.Locals(userLocalsKey, claims)
		return c.Next()
	}
}

// UserFromContext returns the claims stored by RequireAuth, or nil on an
// unauthenticated request.
func UserFromContext(c *fiber.Ctx) *UserClaims {
	claims, _ := c.Locals(userLocalsKey).(*UserClaims)
	return claims
}
