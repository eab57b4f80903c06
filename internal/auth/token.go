package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity - результат разбора токена: кто действует и в какой роли.
type Identity struct {
	AccountID int
	Role      string
}

// GenerateToken подписывает JWT с идентификатором учетной записи и ролью.
func GenerateToken(accountID int, role string, secret string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  strconv.Itoa(accountID),
		"role": role,
		"exp":  time.Now().Add(time.Hour * 24 * 30).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken проверяет подпись и срок действия и возвращает Identity.
func ValidateToken(tokenString string, secret string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("missing subject claim")
	}
	accountID, err := strconv.Atoi(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid subject claim")
	}

	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return nil, fmt.Errorf("missing role claim")
	}

	return &Identity{AccountID: accountID, Role: role}, nil
}
