// Package session issues and validates the login tokens that gate CSV export
// and alert subscriptions.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quakepredictec/riesgo-dashboard/internal/models"
)

// CookieName carries the token for browser requests
const CookieName = "qp_session"

// DefaultTTL is the lifetime of an issued token
const DefaultTTL = 24 * time.Hour

// ErrInvalidToken covers malformed, expired and badly signed tokens
var ErrInvalidToken = errors.New("invalid session token")

// Claims is the token payload
type Claims struct {
	Usuario string `json:"usuario"`
	Correo  string `json:"correo"`
	jwt.RegisteredClaims
}

// Manager signs tokens with an HMAC secret
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager creates a manager; ttl <= 0 uses DefaultTTL
func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for the user and its expiry
func (m *Manager) Issue(user models.User) (string, time.Time, error) {
	if strings.TrimSpace(user.Usuario) == "" {
		return "", time.Time{}, errors.New("usuario is required")
	}

	now := m.now()
	expires := now.Add(m.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Usuario: user.Usuario,
		Correo:  user.Correo,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Usuario,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expires, nil
}

// Parse validates a token and returns the user it was issued to
func (m *Manager) Parse(tokenString string) (models.User, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))

	if err != nil || !token.Valid {
		return models.User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Usuario == "" {
		return models.User{}, fmt.Errorf("%w: missing usuario", ErrInvalidToken)
	}
	return models.User{Usuario: claims.Usuario, Correo: claims.Correo}, nil
}

// ExtractBearer returns the token of an "Authorization: Bearer ..." header
func ExtractBearer(header string) string {
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
