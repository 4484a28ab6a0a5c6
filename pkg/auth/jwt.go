package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jwalitptl/practice-api/internal/model"
)

var ErrTokenType = errors.New("unexpected token type")

// JWTService issues and validates access and refresh tokens.
type JWTService interface {
	GenerateAccessToken(user *model.User, role model.Role, sessionID uuid.UUID) (string, time.Time, error)
	GenerateRefreshToken(user *model.User, role model.Role, sessionID uuid.UUID) (string, time.Time, error)
	ValidateToken(token string) (*model.TokenClaims, error)
	ValidateRefreshToken(token string) (*model.TokenClaims, error)
}

type Config struct {
	Secret        string
	Issuer        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

type jwtService struct {
	cfg Config
	now func() time.Time
}

func NewJWTService(cfg Config) JWTService {
	if cfg.AccessExpiry <= 0 {
		cfg.AccessExpiry = time.Hour
	}
	if cfg.RefreshExpiry <= 0 {
		cfg.RefreshExpiry = 7 * 24 * time.Hour
	}
	return &jwtService{cfg: cfg, now: time.Now}
}

func (s *jwtService) GenerateAccessToken(user *model.User, role model.Role, sessionID uuid.UUID) (string, time.Time, error) {
	return s.generate(user, role, sessionID, model.TokenTypeAccess, s.cfg.AccessExpiry)
}

func (s *jwtService) GenerateRefreshToken(user *model.User, role model.Role, sessionID uuid.UUID) (string, time.Time, error) {
	return s.generate(user, role, sessionID, model.TokenTypeRefresh, s.cfg.RefreshExpiry)
}

func (s *jwtService) generate(user *model.User, role model.Role, sessionID uuid.UUID, typ model.TokenType, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(ttl)
	claims := model.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.String(),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:    user.ID,
		SessionID: sessionID,
		Email:     user.Email,
		Role:      role,
		TokenType: typ,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *jwtService) ValidateToken(token string) (*model.TokenClaims, error) {
	return s.parse(token, model.TokenTypeAccess)
}

func (s *jwtService) ValidateRefreshToken(token string) (*model.TokenClaims, error) {
	return s.parse(token, model.TokenTypeRefresh)
}

func (s *jwtService) parse(token string, want model.TokenType) (*model.TokenClaims, error) {
	claims := &model.TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !parsed.Valid {
		return nil, model.ErrInvalidToken
	}
	if claims.TokenType != want {
		return nil, ErrTokenType
	}
	return claims, nil
}
