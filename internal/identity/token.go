package identity

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken возвращается для неподписанного, просроченного или отозванного токена.
var ErrInvalidToken = errors.New("invalid token")

// Claims описывает содержимое токена доступа. Поле ID используется для отзыва токена.
type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

func secretKey(secret string) []byte {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			key = []byte("joyful-default-secret")
		}
	}
	return key
}

func (p *Provider) issue(userID string) (string, error) {
	now := p.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.tokenTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify проверяет подпись, срок действия и отзыв токена.
func (p *Provider) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil || !parsed.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	p.mu.Lock()
	_, revoked := p.revoked[claims.ID]
	p.mu.Unlock()
	if revoked {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// TokenTTL возвращает срок действия выпускаемых токенов.
func (p *Provider) TokenTTL() time.Duration {
	return p.tokenTTL
}
