package utils

import (
	"crypto/rand"
	"math/big"
)

const confirmationAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateConfirmationCode returns an uppercase base36 code travellers can
// read over the phone, e.g. "7QK2M0ZD"
func GenerateConfirmationCode(length int) (string, error) {
	if length <= 0 {
		length = 8
	}

	max := big.NewInt(int64(len(confirmationAlphabet)))
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = confirmationAlphabet[n.Int64()]
	}

	return string(code), nil
}
