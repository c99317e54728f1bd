package http

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"anxiety-quiz-bot/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var errInvalidToken = errors.New("invalid or expired token")

// WebAuth issues and verifies the tokens web clients present on /ws.
type WebAuth struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type webClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

func NewWebAuth(secret string, ttl time.Duration) *WebAuth {
	return &WebAuth{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// IssueToken signs a token for web user id. The id is the client's own, not yet namespaced.
func (a *WebAuth) IssueToken(id int64, name string) (string, error) {
	if _, err := domain.WebUserID(id); err != nil {
		return "", err
	}
	now := a.now()
	claims := webClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  strconv.FormatInt(id, 10),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if a.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(a.ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify returns the namespaced user a token was issued for.
func (a *WebAuth) Verify(token string) (domain.User, error) {
	claims := &webClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil || !parsed.Valid {
		return domain.User{}, errInvalidToken
	}

	raw, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: subject %q", errInvalidToken, claims.Subject)
	}
	id, err := domain.WebUserID(raw)
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{ID: id, FirstName: claims.Name}, nil
}

// adminAuth requires "Authorization: Bearer <token>".
func adminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" ||
			subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin token required"})
			return
		}
		c.Next()
	}
}
