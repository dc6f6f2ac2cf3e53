package security

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"AgoraNotify/global"
	"AgoraNotify/tools/errs"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// CtxUserIDKey is where the middleware leaves the authenticated user id;
// downstream handlers read it with c.GetString.
const CtxUserIDKey = "userID"

type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// BearerToken extracts the credential from an Authorization: Bearer header.
func BearerToken(r *http.Request) string {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if authz == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	return ""
}

// ParseToken verifies the signature and returns the user identity.
func ParseToken(token string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errs.ErrTokenInvalid.WithDetail("unexpected signing method")
		}
		return global.GetJwtSecret(), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errs.ErrTokenExpired
		}
		return "", err
	}
	if !parsed.Valid {
		return "", errs.ErrTokenInvalid
	}
	user := claims.UserID
	if user == "" {
		user = claims.Subject
	}
	if user == "" {
		return "", errs.ErrTokenInvalid.WithDetail("no user identity in claims")
	}
	return user, nil
}

// Sign mints a token for the given user; used by the demo client and tests.
func Sign(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(global.GetJwtSecret())
}

// Middleware rejects requests without a valid bearer token and stores the
// authenticated user id in the gin context.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenInvalid.WithDetail("missing bearer token"))
			return
		}
		user, err := ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenInvalid.WithDetail(err.Error()))
			return
		}
		c.Set(CtxUserIDKey, user)
		c.Next()
	}
}
