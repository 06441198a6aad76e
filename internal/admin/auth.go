package admin

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	httperr "github.com/xkorin-lab/xkorin/internal/core/errors"
)

// DefaultRole is the role admin routes require when none is configured.
const DefaultRole = "SCHOOL_ADMIN"

// subjectKey holds the authenticated subject in the gin context.
const subjectKey = "admin.subject"

// Claims is the bearer token payload.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens and enforces one role.
type Authenticator struct {
	secret []byte
	role   string
	nowFn  func() time.Time
}

func NewAuthenticator(secret []byte, role string) *Authenticator {
	if len(secret) == 0 {
		panic("admin: authenticator requires a signing secret")
	}
	if role == "" {
		role = DefaultRole
	}
	return &Authenticator{secret: secret, role: role, nowFn: time.Now}
}

// Issue signs a token for subject with role, valid for ttl.
func (a *Authenticator) Issue(subject, role string, ttl time.Duration) (string, error) {
	now := a.nowFn()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign admin token: %w", err)
	}
	return signed, nil
}

// Verify parses a raw token and returns its claims.
func (a *Authenticator) Verify(raw string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.nowFn),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return &claims, nil
}

// Middleware rejects requests without a valid token (401) or with another
// role (403).
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httperr.ErrorResponse{
				ErrorType: httperr.HttpUnauthorizedError,
				Message:   "Missing bearer token",
			})
			return
		}

		claims, err := a.Verify(strings.TrimSpace(raw))
		if err != nil {
			slog.Warn("[Admin] Rejected token", "path", c.FullPath(), "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, httperr.ErrorResponse{
				ErrorType: httperr.HttpUnauthorizedError,
				Message:   "Invalid bearer token",
			})
			return
		}

		if claims.Role != a.role {
			slog.Warn("[Admin] Forbidden",
				"path", c.FullPath(),
				"subject", claims.Subject,
				"role", claims.Role,
			)
			c.AbortWithStatusJSON(http.StatusForbidden, httperr.ErrorResponse{
				ErrorType: httperr.HttpForbiddenError,
				Message:   "Admin role required",
			})
			return
		}

		c.Set(subjectKey, claims.Subject)
		c.Next()
	}
}
