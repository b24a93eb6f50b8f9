package service

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"tablebook/internal/models"
)

// Без 0/O и 1/I, чтобы код можно было продиктовать по телефону.
const confirmationAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateConfirmationCode returns a random code guests quote at the door.
func GenerateConfirmationCode() (string, error) {
	code := make([]byte, models.ConfirmationCodeLength)
	max := big.NewInt(int64(len(confirmationAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate confirmation code: %w", err)
		}
		code[i] = confirmationAlphabet[n.Int64()]
	}
	return string(code), nil
}
