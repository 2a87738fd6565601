package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"qrtrack/entity"
)

var ErrInvalidToken = errors.New("invalid token")

type Database interface {
	GetUser(ctx context.Context, id primitive.ObjectID) (*entity.User, error)
}

// Claims carries the user id in the "id" claim
type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

type Auth struct {
	secret []byte
	db     Database
}

func New(secret string, db Database) *Auth {
	return &Auth{
		secret: []byte(secret),
		db:     db,
	}
}

// SignToken issues a token for the user, ttl <= 0 means no expiry
func (a *Auth) SignToken(userId primitive.ObjectID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userId.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (a *Auth) verify(tokenString string) (*Claims, error) {
	if len(a.secret) == 0 {
		return nil, fmt.Errorf("jwt secret not configured")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// UserByToken returns nil user when the token is valid but the user does not exist
func (a *Auth) UserByToken(ctx context.Context, token string) (*entity.User, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	claims, err := a.verify(token)
	if err != nil {
		return nil, err
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: user id", ErrInvalidToken)
	}
	return a.db.GetUser(ctx, id)
}
