// Package password хранит учётные данные пользователей и администраторов в виде bcrypt-хеша.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinLength - минимальная длина пароля при регистрации.
const MinLength = 8

// ErrTooLong возвращается, если пароль длиннее, чем допускает bcrypt (72 байта).
var ErrTooLong = errors.New("password exceeds 72 bytes")

// Hash возвращает bcrypt-хеш пароля для хранения в базе.
func Hash(password string) (string, error) {
	const op = "password.Hash"
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%s: %w", op, ErrTooLong)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// Verify сообщает, соответствует ли пароль сохранённому хешу.
// Повреждённый хеш считается несовпадением.
func Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
