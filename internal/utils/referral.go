// internal/utils/referral.go
package utils

import (
	"crypto/rand"
	"math/big"
)

// No ambiguous characters (0/O, 1/I/L); codes are shared by hand.
const referralCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const referralCodeLength = 8

// GenerateReferralCode returns a human-shareable code. Uniqueness is enforced
// by the database; callers retry on collision.
func GenerateReferralCode() string {
	code := make([]byte, referralCodeLength)
	max := big.NewInt(int64(len(referralCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform entropy source is
			// broken; nothing sensible to do but panic.
			panic(err)
		}
		code[i] = referralCodeAlphabet[n.Int64()]
	}
	return string(code)
}
