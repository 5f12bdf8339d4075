package middleware

import (
	"net/http"
	"strings"

	"vesting-backend/internal/dto"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// UserAddressKey holds the authenticated wallet as a common.Address.
const UserAddressKey = "user_address"

// TokenValidator validates wallet session tokens.
type TokenValidator interface {
	ValidateToken(token string) (*dto.JWTClaims, error)
}

// AuthMiddleware JWT
type AuthMiddleware struct {
	logger    *logrus.Logger
	validator TokenValidator
}

// NewAuthMiddleware createJWT
func NewAuthMiddleware(logger *logrus.Logger, validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{
		logger:    logger,
		validator: validator,
	}
}

// RequireAuth rejects requests without a valid wallet session and stores
// the wallet address under UserAddressKey.
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, code, message := bearerToken(c)
		if code != "" {
			a.logger.WithFields(logrus.Fields{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
				"code":   code,
			}).Warn("JWT auth failed")

			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Authentication required",
				"message": message,
				"code":    code,
			})
			return
		}

		claims, err := a.validator.ValidateToken(tokenString)
		if err != nil {
			a.logger.WithFields(logrus.Fields{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
				"error":  err.Error(),
			}).Warn("JWT auth failed - token verification failed")

			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Invalid or expired token",
				"message": err.Error(),
				"code":    "INVALID_TOKEN",
			})
			return
		}

		address := common.HexToAddress(claims.Subject)
		c.Set(UserAddressKey, address)

		a.logger.WithFields(logrus.Fields{
			"path":         c.Request.URL.Path,
			"method":       c.Request.Method,
			"user_address": address.Hex(),
		}).Debug("JWT auth success")

		c.Next()
	}
}

// UserAddress returns the address stored by RequireAuth.
func UserAddress(c *gin.Context) (common.Address, bool) {
	v, ok := c.Get(UserAddressKey)
	if !ok {
		return common.Address{}, false
	}
	addr, ok := v.(common.Address)
	return addr, ok
}

func bearerToken(c *gin.Context) (token, code, message string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", "MISSING_AUTH_HEADER", "Missing Authorization header. Please provide a valid JWT token."
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "INVALID_AUTH_FORMAT", "Authorization header must be in format: Bearer <token>"
	}
	token = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", "EMPTY_TOKEN", "Token cannot be empty"
	}
	return token, "", ""
}
