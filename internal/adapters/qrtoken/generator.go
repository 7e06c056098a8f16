package qrtoken

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"guestlist/internal/domain"
)

// tokenBytes gives 128 bits of entropy, enough that guessing another
// invitee's token is computationally infeasible.
const tokenBytes = 16

type generator struct{}

// NewGenerator returns a QRTokenGenerator producing random hex tokens. The
// token carries no event information; event scoping is always re-validated
// against the invitee record.
func NewGenerator() domain.QRTokenGenerator {
	return &generator{}
}

func (g *generator) Generate() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate qr token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
