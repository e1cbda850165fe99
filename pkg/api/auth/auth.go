// Package auth issues and verifies HS256 bearer tokens.
package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	apierr "github.com/cropbase/cropbase/pkg/api/types/errors"
	xe "github.com/cropbase/cropbase/pkg/xerrors"
)

type Authority struct {
	secret []byte
	issuer string
}

func New(secret string, issuer string) *Authority {
	return &Authority{secret: []byte(secret), issuer: issuer}
}

// Issue signs a token for a subject.
func (a *Authority) Issue(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    a.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", xe.Wrap(err)
	}
	return signed, nil
}

// Verify parses a signed token and returns its subject.
func (a *Authority) Verify(signed string) (string, error) {
	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(
		signed, &claims,
		func(t *jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", xe.Wrap(err)
	}
	return claims.Subject, nil
}

// subjectKey is the echo context key the middleware stores the verified
// subject under.
const subjectKey = "auth-subject"

// Subject is the verified token subject of a request, or "" when the
// request was not authenticated.
func Subject(c echo.Context) string {
	subject, _ := c.Get(subjectKey).(string)
	return subject
}

// Middleware rejects requests lacking a valid bearer token.
//
// A nil *Authority yields a pass-through middleware, for setups without
// an auth section in their config.
func Middleware(a *Authority) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if a == nil {
			return next
		}
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found {
				return apierr.Unauthorized("bearer token is required", nil)
			}
			subject, err := a.Verify(token)
			if err != nil {
				return apierr.Unauthorized("token is invalid", err)
			}
			c.Set(subjectKey, subject)
			return next(c)
		}
	}
}
