package auth

import (
	"crypto/rand"
	"fmt"
)

// ActivationHashLength is the length of the secret embedded in invitation
// emails. 26^20 possible values — far beyond online-guessing reach.
const ActivationHashLength = 20

const hashAlphabet = "abcdefghijklmnopqrstuvwxyz"

// NewActivationHash returns a fresh random activation secret: 20 lowercase
// ASCII letters, drawn from crypto/rand.
//
// WHY NOT xid?
// xid values are great as entity IDs but terrible as secrets — they start
// with a timestamp and a machine ID, so most of the value is guessable. An
// activation hash is a bearer credential; every character must be
// unpredictable.
func NewActivationHash() (string, error) {
	buf := make([]byte, ActivationHashLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generating activation hash: %w", err)
	}

	// Map each random byte onto the alphabet. 256 % 26 != 0 gives a slight
	// modulo bias, ~0.2% per character — irrelevant at this entropy.
	for i, b := range buf {
		buf[i] = hashAlphabet[int(b)%len(hashAlphabet)]
	}

	return string(buf), nil
}
