package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dkeye/Board/internal/core"
	"github.com/dkeye/Board/internal/domain"
)

// JWTConfig bundles the configuration required to build a JWTVerifier.
type JWTConfig struct {
	Secret string
	Issuer string
	Clock  func() time.Time
}

// Claims mirrors the payload issued by the account service.
type Claims struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 bearer tokens into identities.
type JWTVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTVerifier fails with core.ErrNoSecret when no secret is configured.
func NewJWTVerifier(cfg JWTConfig) (*JWTVerifier, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, core.ErrNoSecret
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &JWTVerifier{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		now:    now,
	}, nil
}

// Verify parses and validates token. Signature, expiry and format problems
// map to core.ErrInvalidCredential; a token without a user id maps to
// core.ErrInvalidPayload.
func (v *JWTVerifier) Verify(_ context.Context, token string) (domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.User{}, core.ErrNoCredential
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", core.ErrInvalidCredential, err)
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return domain.User{}, fmt.Errorf("%w: unexpected issuer %q", core.ErrInvalidCredential, claims.Issuer)
	}

	user, err := domain.NewUser(claims.UserID, claims.UserName)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", core.ErrInvalidPayload, err)
	}
	return user, nil
}

// Sign issues a token for user. A non-positive ttl yields a token without expiry.
func (v *JWTVerifier) Sign(user domain.User, ttl time.Duration) (string, error) {
	if user.ID == "" {
		return "", errors.New("jwt: user id is required")
	}

	now := v.now()
	claims := &Claims{
		UserID:   string(user.ID),
		UserName: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  string(user.ID),
			Issuer:   v.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}
