// Package jwttoken issues and validates the bearer tokens that identify the
// calling account. The account address travels in the subject claim.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"mintpress/pkg/domain"
	dErrors "mintpress/pkg/domain-errors"
)

// Claims are the access token claims.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation
type JWTService struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
}

func NewJWTService(signingKey string, issuer string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		now:        time.Now,
	}
}

// GenerateAccessToken signs a token that authenticates account for expiresIn.
func (s *JWTService) GenerateAccessToken(account domain.Address, expiresIn time.Duration) (string, error) {
	if account.IsZero() {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "account must not be the zero address")
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// ParseClaims verifies signature, issuer and expiry.
func (s *JWTService) ParseClaims(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthenticated, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthenticated, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthenticated, "invalid token claims")
	}
	return claims, nil
}

// ValidateToken returns the account the token was issued to.
func (s *JWTService) ValidateToken(tokenString string) (domain.Address, error) {
	claims, err := s.ParseClaims(tokenString)
	if err != nil {
		return domain.ZeroAddress, err
	}
	account, err := domain.ParseAddress(claims.Subject)
	if err != nil || account.IsZero() {
		return domain.ZeroAddress, dErrors.New(dErrors.CodeUnauthenticated, "invalid token subject")
	}
	return account, nil
}
