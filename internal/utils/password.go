package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// GeneratePassword produces an initial password for exhibitor accounts
// created without one.  Two readable words plus a symbol and digits
// balance memorability and strength; the account is inactive and forced
// to change the password on first login anyway.
func GeneratePassword(length int) (string, error) {
	words := []string{"Origin", "Roast", "Bean", "Cup", "Aroma", "Harvest", "Altitude", "Sunrise"}
	symbols := "!#$%@-"

	w1, err := pick(len(words))
	if err != nil {
		return "", err
	}
	w2, err := pick(len(words))
	if err != nil {
		return "", err
	}
	sym, err := pick(len(symbols))
	if err != nil {
		return "", err
	}
	digits, err := pick(90)
	if err != nil {
		return "", err
	}

	pw := fmt.Sprintf("%s%c%s%02d", words[w1], symbols[sym], words[w2], digits+10)
	for len(pw) < length {
		c, err := pick(26)
		if err != nil {
			return "", err
		}
		pw += string(rune('a' + c))
	}
	if length > 0 && len(pw) > length {
		pw = pw[:length]
	}
	return pw, nil
}

func pick(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
