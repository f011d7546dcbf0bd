// Package middleware provides authentication, logging, tracing and rate limiting middleware for the application.
package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// TokenIssuer is the issuer the identity provider stamps on access tokens.
	TokenIssuer = "quill-identity"
	// TokenAudience is the audience access tokens must be minted for.
	TokenAudience = "quill-api"

	callerLocal = "profileID"
)

var errInvalidToken = errors.New("invalid or expired token")

// Authenticator verifies bearer tokens minted by the identity provider.
// It never issues credentials for end users.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an Authenticator that checks HS256 signatures with secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// ParseToken validates tokenString and returns the profile id in its subject claim.
func (a *Authenticator) ParseToken(tokenString string) (uint, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !token.Valid {
		return 0, errInvalidToken
	}

	profileID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || profileID == 0 {
		return 0, errInvalidToken
	}
	return uint(profileID), nil
}

// SignToken mints a token for profileID. Production tokens come from the
// identity provider; this exists for local tooling and tests.
func (a *Authenticator) SignToken(profileID uint, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(profileID), 10),
		Issuer:    TokenIssuer,
		Audience:  jwt.ClaimStrings{TokenAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Required rejects requests without a valid bearer token.
func (a *Authenticator) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := bearerToken(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Authorization required"))
		}

		profileID, err := a.ParseToken(tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Invalid or expired token"))
		}

		setCaller(c, profileID)
		return c.Next()
	}
}

// Optional attaches the caller when a valid token is present and lets
// anonymous requests through otherwise.
func (a *Authenticator) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tokenString, ok := bearerToken(c); ok {
			if profileID, err := a.ParseToken(tokenString); err == nil {
				setCaller(c, profileID)
			}
		}
		return c.Next()
	}
}

// CallerID returns the authenticated profile id, or 0 for anonymous requests.
func CallerID(c *fiber.Ctx) uint {
	if id, ok := c.Locals(callerLocal).(uint); ok {
		return id
	}
	return 0
}

func setCaller(c *fiber.Ctx, profileID uint) {
	c.Locals(callerLocal, profileID)
	c.SetUserContext(context.WithValue(c.UserContext(), ProfileIDKey, profileID))
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
