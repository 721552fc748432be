package util

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateRandomToken : генерирует случайную base64url строку из byteLength случайных байт
func GenerateRandomToken(byteLength int) (string, error) {
	bytes := make([]byte, byteLength)

	_, err := rand.Read(bytes)
	if err != nil {
		return "", LogError("[util] ошибка генерации токена", err)
	}

	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
