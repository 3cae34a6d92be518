package middleware

import (
	"errors"
	"fmt"
	"strings"

	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const ownerIDKey = "owner_id"

// AuthConfig holds the settings of owner token verification
type AuthConfig struct {
	Secret []byte
	Issuer string // Optional; when set the iss claim must match
}

// OwnerAuth middleware verifies an HS256 bearer token and stores its subject as the owner id
func OwnerAuth(config AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, err := parseOwnerToken(c.GetHeader("Authorization"), config)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Set(ownerIDKey, ownerID)
		c.Next()
	}
}

// OwnerIDFromContext returns the owner id set by OwnerAuth
func OwnerIDFromContext(c *gin.Context) string {
	return c.GetString(ownerIDKey)
}

func parseOwnerToken(header string, config AuthConfig) (string, error) {
	if len(config.Secret) == 0 {
		return "", fmt.Errorf("%w: token verification is not configured", errs.ErrUnauthorized)
	}

	tokenString, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(tokenString) == "" {
		return "", fmt.Errorf("%w: missing bearer token", errs.ErrUnauthorized)
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(tokenString), claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return config.Secret, nil
	})
	if err != nil {
		var validationErr *jwt.ValidationError
		if errors.As(err, &validationErr) && validationErr.Errors&jwt.ValidationErrorExpired != 0 {
			return "", fmt.Errorf("%w: token expired", errs.ErrUnauthorized)
		}
		return "", fmt.Errorf("%w: invalid token", errs.ErrUnauthorized)
	}
	if !token.Valid {
		return "", fmt.Errorf("%w: invalid token", errs.ErrUnauthorized)
	}

	if config.Issuer != "" && !claims.VerifyIssuer(config.Issuer, true) {
		return "", fmt.Errorf("%w: unexpected token issuer", errs.ErrUnauthorized)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", errs.ErrUnauthorized)
	}
	return claims.Subject, nil
}

// SignOwnerToken issues an HS256 token for ownerID. It is used by tooling and tests.
func SignOwnerToken(config AuthConfig, ownerID string, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = ownerID
	if claims.Issuer == "" {
		claims.Issuer = config.Issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(config.Secret)
}
