package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/safeprotest/factcheck/internal/model"
)

// ErrUnauthorized means the request carried no usable identity
var ErrUnauthorized = errors.New("unauthorized")

// Authenticator resolves the caller's voter id. A bearer token signed with
// the shared HS256 secret wins; otherwise the identity header set by a
// trusted proxy is used.
type Authenticator struct {
	secret []byte
	header string
	now    func() time.Time
}

// NewAuthenticator creates an authenticator. An empty secret disables
// tokens; an empty header disables the header fallback.
func NewAuthenticator(secret, header string) *Authenticator {
	a := &Authenticator{header: header, now: time.Now}
	if secret != "" {
		a.secret = []byte(secret)
	}
	return a
}

// Identify returns the voter id for r
func (a *Authenticator) Identify(r *http.Request) (string, error) {
	if token, ok := bearerToken(r); ok && a.secret != nil {
		return a.parse(token)
	}

	if a.header != "" {
		if id := strings.TrimSpace(r.Header.Get(a.header)); id != "" {
			return id, nil
		}
	}
	return "", ErrUnauthorized
}

func (a *Authenticator) parse(raw string) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}
	return sub, nil
}

// Issue signs a token for subject valid for ttl
func (a *Authenticator) Issue(subject string, ttl time.Duration) (string, error) {
	if a.secret == nil {
		return "", errors.New("no signing secret configured")
	}
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// identityHeader picks the header trusted for voter ids. With a token secret
// configured, headers are trusted only when named explicitly.
func identityHeader(cfg model.ServerConfig) string {
	if cfg.IdentityHeader != "" {
		return cfg.IdentityHeader
	}
	if cfg.JWTSecret != "" {
		return ""
	}
	return model.DefaultIdentityHeader
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(auth, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
