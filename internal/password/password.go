// Package password реализует хеширование и проверку паролей пользователей.
//
// Основной формат хранения bcrypt. Для учётных записей, созданных до перехода на bcrypt,
// поддерживается устаревший формат: несолёный SHA-256 в шестнадцатеричном виде.
package password

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const legacyHashLen = sha256.Size * 2

// MaxBytes задаёт предельную длину пароля в байтах, которую принимает bcrypt.
const MaxBytes = 72

// Hash возвращает bcrypt-хеш пароля.
func Hash(plaintext string) (string, error) {
	const op = "password.Hash"
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// Verify сравнивает пароль с сохранённым хешем.
//
// Устаревший формат проверяется только если bcrypt не смог разобрать хеш.
// Некорректный хеш даёт false.
func Verify(plaintext, stored string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(plaintext))
	if err == nil {
		return true
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false
	}
	return verifyLegacy(plaintext, stored)
}

// IsLegacy сообщает, записан ли хеш в устаревшем формате SHA-256.
func IsLegacy(stored string) bool {
	if len(stored) != legacyHashLen {
		return false
	}
	_, err := hex.DecodeString(stored)
	return err == nil
}

// LegacyHash возвращает хеш в устаревшем формате. Используется только для демо-данных.
func LegacyHash(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

func verifyLegacy(plaintext, stored string) bool {
	if !IsLegacy(stored) {
		return false
	}
	expected := LegacyHash(plaintext)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(stored)) == 1
}
