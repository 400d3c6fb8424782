package gate

import (
	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPinLen and MaxPinLen bound the accepted PIN shape. Applied uniformly
	// everywhere a PIN is accepted: page creation, PIN change, verification.
	MinPinLen = 4
	MaxPinLen = 8
)

// ValidatePin checks the PIN shape (4-8 ASCII digits) without touching any
// stored hash. Malformed input fails fast as ErrInvalidFormat.
func ValidatePin(pin string) error {
	if len(pin) < MinPinLen || len(pin) > MaxPinLen {
		return ErrInvalidFormat
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return ErrInvalidFormat
		}
	}
	return nil
}

// HashPin returns a bcrypt hash of the PIN. The salt is embedded in the hash;
// the plaintext PIN is never stored or logged.
func HashPin(pin string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPin compares a submitted PIN against the stored hash. bcrypt's compare
// is constant time with respect to the secret. No counters are mutated here;
// throttling is layered above.
func CheckPin(pinHash, pin string) bool {
	return bcrypt.CompareHashAndPassword([]byte(pinHash), []byte(pin)) == nil
}
