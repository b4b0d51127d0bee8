package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/listings/internal/common"
	"github.com/dmitrijs2005/listings/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the signed token payload: sub, role, exp and iat.
type Claims struct {
	jwt.RegisteredClaims
	Role models.Role `json:"role"`
}

// TokenManager issues and verifies HMAC-signed access tokens.
type TokenManager struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	now    func() time.Time
}

func NewTokenManager(secret, algorithm string) (*TokenManager, error) {
	var method *jwt.SigningMethodHMAC
	switch algorithm {
	case "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	if secret == "" {
		return nil, errors.New("empty signing secret")
	}
	return &TokenManager{secret: []byte(secret), method: method, now: time.Now}, nil
}

// Issue signs a token for subjectID valid for ttl and returns it with its
// absolute expiry.
func (m *TokenManager) Issue(subjectID string, role models.Role, ttl time.Duration) (string, time.Time, error) {
	now := m.now()
	exp := jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(m.method, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ExpiresAt: exp,
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role: role,
	})

	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, exp.Time.UTC(), nil
}

// Verify checks the signature, algorithm and expiry of tokenString.
// Expired tokens return common.ErrTokenExpired, any other failure
// common.ErrInvalidToken.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if claims.Subject == "" || !claims.Role.Valid() {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
