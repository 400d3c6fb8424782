package gate

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// defaultUnlockProofTTL bounds how long after a successful verification a
// client may still ask to be remembered.
const defaultUnlockProofTTL = 10 * time.Minute

// unlockClaims are the claims of an unlock proof token
type unlockClaims struct {
	ProfileID uuid.UUID `json:"profile_id"`
	PageID    uuid.UUID `json:"page_id"`
	jwt.RegisteredClaims
}

// ProofService mints and verifies unlock proofs: short-lived signed tokens
// returned by a successful PIN verification. A device trust token is only
// issued against a valid proof, so trust issuance is always a direct result
// of a verification without the server keeping per-client unlock state.
type ProofService struct {
	secret []byte
	ttl    time.Duration
}

// NewProofService creates a new unlock proof service
func NewProofService(secret string, ttl time.Duration) *ProofService {
	if ttl <= 0 {
		ttl = defaultUnlockProofTTL
	}
	return &ProofService{secret: []byte(secret), ttl: ttl}
}

// Sign creates an unlock proof for the given profile and page
func (s *ProofService) Sign(profileID, pageID uuid.UUID) (string, error) {
	now := time.Now()
	claims := &unlockClaims{
		ProfileID: profileID,
		PageID:    pageID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign unlock proof: %w", err)
	}
	return signed, nil
}

// Verify parses the proof and returns the profile and page it was minted for.
// Any parse, signature, or expiry failure collapses to ErrUnlockProofInvalid.
func (s *ProofService) Verify(tokenString string) (profileID, pageID uuid.UUID, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &unlockClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, uuid.Nil, ErrUnlockProofInvalid
	}

	claims, ok := token.Claims.(*unlockClaims)
	if !ok || !token.Valid {
		return uuid.Nil, uuid.Nil, ErrUnlockProofInvalid
	}
	if claims.ProfileID == uuid.Nil || claims.PageID == uuid.Nil {
		return uuid.Nil, uuid.Nil, ErrUnlockProofInvalid
	}
	return claims.ProfileID, claims.PageID, nil
}
