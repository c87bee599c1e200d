package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/studylane/studylane-backend/internal/platform/logger"
)

// Claims is the JWT payload: the subject carries the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Service interface {
	IssueToken(userID uuid.UUID, role string) (string, error)
	// VerifyToken parses and validates a token, returning the user id and role.
	VerifyToken(token string) (uuid.UUID, string, error)
}

type service struct {
	secret []byte
	ttl    time.Duration
	log    *logger.Logger
}

func NewService(secret string, ttl time.Duration, baseLog *logger.Logger) Service {
	return &service{
		secret: []byte(secret),
		ttl:    ttl,
		log:    baseLog.With("service", "AuthService"),
	}
}

func (s *service) IssueToken(userID uuid.UUID, role string) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *service) VerifyToken(raw string) (uuid.UUID, string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return uuid.Nil, "", fmt.Errorf("invalid token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid token subject: %w", err)
	}
	return userID, claims.Role, nil
}
