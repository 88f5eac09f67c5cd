package auth

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL bounds every task token; a task older than this is dead on arrival
// and must be re-enqueued.
const TokenTTL = 30 * time.Minute

// Claims identify the one entity and endpoint a task token is valid for.
type Claims struct {
	EntityID string `json:"entity_id"`
	Endpoint string `json:"endpoint"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secret []byte
}

func NewTokenService() (*TokenService, error) {
	secret := strings.TrimSpace(os.Getenv("SECRET_KEY"))
	if secret == "" {
		return nil, fmt.Errorf("missing SECRET_KEY")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

func NewTokenServiceWithSecret(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

func (s *TokenService) Mint(entityID, endpoint string) (string, error) {
	now := time.Now()
	claims := Claims{
		EntityID: entityID,
		Endpoint: endpoint,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign task token: %w", err)
	}
	return signed, nil
}

func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse task token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid task token")
	}
	return claims, nil
}
