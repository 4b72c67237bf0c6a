package httpapi

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"retailpro/backend/internal/domain"
)

const tokenIssuer = "retailpro"

var errInvalidToken = errors.New("invalid or expired token")

// AuthManager verifies bearer tokens minted by the login service. Both
// sides share the HS256 secret.
type AuthManager struct {
	secret []byte
}

type posCustomClaims struct {
	jwtlib.RegisteredClaims
	Name string `json:"name"`
	Role string `json:"role"`
}

func NewAuthManager(secret string) *AuthManager {
	return &AuthManager{secret: []byte(secret)}
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &posCustomClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithIssuer(tokenIssuer), jwtlib.WithExpirationRequired())
	if err != nil || !token.Valid {
		return domain.Actor{}, errInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	role := strings.ToUpper(strings.TrimSpace(claims.Role))
	switch role {
	case domain.RoleAdmin, domain.RoleCashier, domain.RoleStockClerk:
	default:
		return domain.Actor{}, errors.New("invalid token role")
	}
	return domain.Actor{ID: sub, Name: strings.TrimSpace(claims.Name), Role: role}, nil
}

// Sign mints a token for actor. The login service owns issuance in
// production; this exists for tooling and tests.
func (a *AuthManager) Sign(actor domain.Actor, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := posCustomClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			Issuer:    tokenIssuer,
		},
		Name: actor.Name,
		Role: actor.Role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}
