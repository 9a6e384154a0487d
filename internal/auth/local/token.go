package local

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/conneroisu/syllabus/internal/auth"
	"github.com/conneroisu/syllabus/internal/errors"
)

const tokenIssuer = "syllabus"

// Claims are the id token claims. The subject is the account id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (p *Provider) issueToken(acct *Account) (*auth.Credential, error) {
	now := p.now()
	claims := Claims{
		Email: acct.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   acct.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.tokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return nil, auth.NewProviderError(auth.CodeInternalError, "failed to sign token: "+err.Error())
	}
	return &auth.Credential{
		UserID:    acct.ID,
		Email:     acct.Email,
		IDToken:   signed,
		ExpiresIn: p.tokenTTL,
	}, nil
}

// parseToken returns the account id of a valid token.
func (p *Provider) parseToken(idToken string) (string, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(idToken, &claims, func(*jwt.Token) (interface{}, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(p.now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", auth.NewProviderError(auth.CodeUserTokenExpired, "token expired")
	default:
		return "", auth.NewProviderError(auth.CodeInvalidUserToken, err.Error())
	}
	if claims.Subject == "" {
		return "", auth.NewProviderError(auth.CodeInvalidUserToken, "token has no subject")
	}
	return claims.Subject, nil
}

func tokenLifetime(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return time.Hour
	}
	return ttl
}
