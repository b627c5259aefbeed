package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/prudhvinik1/possync/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenService issues and verifies the bearer tokens a terminal presents to
// the agent's API. A token binds one shop and one device.
type TokenService struct {
	jwtSecret string
	jwtExpiry time.Duration
}

func NewTokenService(jwtSecret string, jwtExpiry time.Duration) *TokenService {
	return &TokenService{jwtSecret: jwtSecret, jwtExpiry: jwtExpiry}
}

func (s *TokenService) Issue(shopID, deviceID string) (string, *models.SessionClaims, error) {
	if shopID == "" || deviceID == "" {
		return "", nil, errors.New("shop id and device id are required")
	}

	now := time.Now()
	claims := &models.SessionClaims{
		ShopID:    shopID,
		DeviceID:  deviceID,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(s.jwtExpiry),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":       claims.ShopID,
		"device_id": claims.DeviceID,
		"jti":       claims.TokenID,
		"exp":       claims.ExpiresAt.Unix(),
		"iat":       now.Unix(),
	})
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims, nil
}

func (s *TokenService) Verify(tokenString string) (*models.SessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	shopID, err := claims.GetSubject()
	if err != nil || shopID == "" {
		return nil, ErrInvalidToken
	}
	deviceID, ok := claims["device_id"].(string)
	if !ok || deviceID == "" {
		return nil, ErrInvalidToken
	}
	tokenID, _ := claims["jti"].(string)

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrInvalidToken
	}

	return &models.SessionClaims{
		ShopID:    shopID,
		DeviceID:  deviceID,
		TokenID:   tokenID,
		ExpiresAt: exp.Time,
	}, nil
}
