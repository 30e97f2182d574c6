package jwttoken

import (
	"fmt"
	"time"

	"github.com/Caskiuz/nemy-marketplace/internal/entities"
	"github.com/golang-jwt/jwt/v4"
)

const (
	secretKey = "mrktplc#9si3_settl4"
	tokenExp  = time.Hour * 3
)

type claims struct {
	jwt.RegisteredClaims
	UserID string
	Role   entities.Role
}

func Parse(accessToken string) (string, entities.Role, error) {
	claims := &claims{}

	token, err := jwt.ParseWithClaims(
		accessToken,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secretKey), nil
		},
	)

	if err != nil {
		return "", "", err
	}

	if !token.Valid || claims.UserID == "" || claims.Role == "" {
		return "", "", fmt.Errorf("token is not valid")
	}

	return claims.UserID, claims.Role, nil
}

func Generate(userID string, role entities.Role) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenExp)),
		},
		UserID: userID,
		Role:   role,
	})

	accessToken, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", err
	}

	return accessToken, nil
}
