package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicore/backend/internal/infrastructure/auth"
	"github.com/clinicore/backend/internal/interfaces/http/dto"
)

// Context keys set by the staff auth middleware
const (
	StaffIDContextKey   = "staff_id"
	StaffNameContextKey = "staff_name"
	StaffRoleContextKey = "staff_role"
)

// StaffAuthConfig holds staff auth middleware configuration
type StaffAuthConfig struct {
	JWTService *auth.JWTService
	// SkipPaths are exact paths that bypass authentication
	SkipPaths []string
}

// StaffAuth returns a middleware that verifies the bearer token and puts the
// staff identity on the gin context. Tokens are issued by the clinic's
// identity provider; this middleware only verifies and extracts.
func StaffAuth(jwtService *auth.JWTService) gin.HandlerFunc {
	return StaffAuthWithConfig(StaffAuthConfig{
		JWTService: jwtService,
		SkipPaths:  []string{"/health", "/ready"},
	})
}

// StaffAuthWithConfig returns a staff auth middleware with custom configuration
func StaffAuthWithConfig(cfg StaffAuthConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		token, err := extractBearerToken(c)
		if err != nil {
			abortAuthError(c, err)
			return
		}

		claims, err := cfg.JWTService.ValidateToken(token)
		if err != nil {
			abortAuthError(c, err)
			return
		}

		c.Set(StaffIDContextKey, claims.StaffID)
		c.Set(StaffNameContextKey, claims.Name)
		c.Set(StaffRoleContextKey, claims.Role)

		c.Next()
	}
}

var errMissingAuthHeader = errors.New("missing authorization header")

func extractBearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", errMissingAuthHeader
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", auth.ErrInvalidToken
	}
	return parts[1], nil
}

func abortAuthError(c *gin.Context, err error) {
	requestID := GetRequestID(c)

	var code, message string
	switch {
	case errors.Is(err, errMissingAuthHeader):
		code = dto.ErrCodeUnauthorized
		message = "authorization header is required"
	case errors.Is(err, auth.ErrExpiredToken):
		code = dto.ErrCodeTokenExpired
		message = "token has expired"
	default:
		code = dto.ErrCodeTokenInvalid
		message = "invalid token"
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// GetStaffID returns the authenticated staff member's UUID from the gin
// context. Handlers use this to stamp recorded_by on mutations.
func GetStaffID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetString(StaffIDContextKey)
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// GetStaffRole returns the authenticated staff member's role, if any
func GetStaffRole(c *gin.Context) string {
	return c.GetString(StaffRoleContextKey)
}
