package utils

import (
	"crypto/rand"
	"math/big"
)

const slugCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateRandomString returns a cryptographically random alphanumeric string
func GenerateRandomString(length int) (string, error) {
	result := make([]byte, length)
	max := big.NewInt(int64(len(slugCharset)))
	for i := range result {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		result[i] = slugCharset[num.Int64()]
	}
	return string(result), nil
}
