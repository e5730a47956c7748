package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is what the portal needs from an access token.
type Claims struct {
	UserID uuid.UUID
	Role   string
	Email  string
	Name   string
	Exp    time.Time
}

type accessClaims struct {
	Sub   string `json:"sub"`
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// HSProvider verifies HS256 access tokens minted by the auth service with the
// shared secret. Signing is only used by tooling and tests.
type HSProvider struct {
	secret   []byte
	issuer   string
	audience string
	parser   *jwt.Parser
	now      func() time.Time
}

func NewHSProvider(secret, issuer, audience string) *HSProvider {
	p := &HSProvider{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}
	p.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return p.now() }),
	)
	return p
}

// SignAccess mints a token for c. c.Exp is ignored; ttl decides expiry.
func (p *HSProvider) SignAccess(_ context.Context, c Claims, ttl time.Duration) (string, time.Time, error) {
	issued := p.now()
	exp := issued.Add(ttl)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Sub:   c.UserID.String(),
		Role:  c.Role,
		Email: c.Email,
		Name:  c.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    p.issuer,
			Subject:   c.UserID.String(),
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := tok.SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

func (p *HSProvider) ParseAndValidateAccess(_ context.Context, raw string) (*Claims, error) {
	var ac accessClaims
	if _, err := p.parser.ParseWithClaims(raw, &ac, func(*jwt.Token) (any, error) {
		return p.secret, nil
	}); err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	sub := ac.Sub
	if sub == "" {
		sub = ac.Subject
	}
	uid, err := uuid.Parse(sub)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	return &Claims{
		UserID: uid,
		Role:   ac.Role,
		Email:  strings.TrimSpace(ac.Email),
		Name:   strings.TrimSpace(ac.Name),
		Exp:    ac.ExpiresAt.Time,
	}, nil
}
