package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const minSecretLength = 32

var ErrInvalidToken = errors.New("invalid token")

// Claims identify the player behind a request. PlayerID is the value
// battles compare against a unit's controller.
type Claims struct {
	PlayerID string `json:"player_id"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 player tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required but not set")
	}
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("JWT secret must be at least %d characters long for security", minSecretLength)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token expiration must be positive")
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (i *TokenIssuer) GenerateJWT(playerID, username string) (string, error) {
	if playerID == "" {
		return "", fmt.Errorf("cannot generate JWT: player id is required")
	}

	now := i.now()
	claims := Claims{
		PlayerID: playerID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   playerID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

func (i *TokenIssuer) ValidateJWT(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.PlayerID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
