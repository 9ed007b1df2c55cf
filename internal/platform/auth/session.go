package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	SessionCookie = "consultorio_session"
	issuer        = "consultorio"
)

// Token types. Each has one shared access token.
const (
	TokenAdmin     = "admin"
	TokenReception = "reception"
)

var TokenTypes = []string{TokenAdmin, TokenReception}

func ValidTokenType(t string) bool {
	return t == TokenAdmin || t == TokenReception
}

// Claims carry the token type and the fingerprint of the access token the
// session was opened with; rotating the token invalidates the session.
type Claims struct {
	jwt.RegisteredClaims
	TokenType   string `json:"token_type"`
	Fingerprint string `json:"fp,omitempty"`
}

// Sessions issues and verifies the signed session cookie.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewSessions(secret string, ttl time.Duration, secure bool) *Sessions {
	return &Sessions{secret: []byte(secret), ttl: ttl, secure: secure, now: time.Now}
}

// Issue signs an HS256 token for tokenType valid for the session TTL.
func (s *Sessions) Issue(tokenType, fingerprint string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   tokenType,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		TokenType:   tokenType,
		Fingerprint: fingerprint,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies signature, issuer and expiry and returns the claims.
func (s *Sessions) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid || !ValidTokenType(claims.TokenType) {
		return nil, fmt.Errorf("invalid session")
	}
	return claims, nil
}

// Start sets the session cookie for tokenType.
func (s *Sessions) Start(c echo.Context, tokenType, fingerprint string) error {
	signed, exp, err := s.Issue(tokenType, fingerprint)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    signed,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// End expires the session cookie.
func (s *Sessions) End(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
