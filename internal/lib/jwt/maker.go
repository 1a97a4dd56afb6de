// Package jwt реализует выпуск и проверку JWT токенов для пользователей и администраторов.
//
// Maker определяет интерфейс выпуска и разбора токена, MakerImpl - реализацию
// на HS256 с секретным ключом и временем жизни токена.
package jwt

import (
	"time"
)

const (
	// RoleUser - роль обычного пользователя.
	RoleUser = "user"
	// RoleAdmin - роль администратора.
	RoleAdmin = "admin"
)

// Maker описывает интерфейс для генерации и парсинга JWT токенов.
type Maker interface {
	// GenerateToken выпускает токен для субъекта с идентификатором id, email и ролью.
	GenerateToken(id int64, email, role string) (string, error)
	// ParseToken проверяет подпись и срок действия, возвращает claims.
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализует интерфейс Maker с использованием секретного ключа
// и времени жизни токена (TTL).
type MakerImpl struct {
	secretKey string        // Секретный ключ для подписи токенов.
	tokenTTL  time.Duration // Время жизни токена.
	now       func() time.Time
}

// NewJWTMaker создаёт новый экземпляр MakerImpl на основе секретного ключа и TTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
		now:       time.Now,
	}
}
