package gate

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// GenerateToken returns a random Base64URL credential (32 bytes of entropy)
// and its SHA256 hash as hex. The client keeps the credential; only the hash
// is persisted, so a leaked table cannot be replayed.
func GenerateToken() (token string, hashHex string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	token = base64.RawURLEncoding.EncodeToString(b)
	hash := sha256.Sum256([]byte(token))
	hashHex = hex.EncodeToString(hash[:])
	return token, hashHex, nil
}

// HashToken returns SHA256 hex of the token, used to look up presented
// credentials by their stored hash.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
