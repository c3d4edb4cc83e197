package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	opaqueTokenBytes = 32
	licenseKeyBytes  = 16
	licenseGroupSize = 4
)

// GenerateOpaqueToken returns a hex-encoded random token for password-reset
// and email-verification flows. The raw value goes to the customer; only its
// SHA-256 hash is ever persisted.
func GenerateOpaqueToken() (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

// HashToken calculates the SHA-256 hash of the provided value, hex-encoded.
func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// GenerateLicenseKey produces an uppercase hex license key grouped into
// hyphen-joined 4-character segments, e.g.
// "A1B2-C3D4-E5F6-0718-293A-4B5C-6D7E-8F90".
func GenerateLicenseKey() (string, error) {
	buf := make([]byte, licenseKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate license key: %w", err)
	}

	encoded := strings.ToUpper(hex.EncodeToString(buf))

	groups := make([]string, 0, len(encoded)/licenseGroupSize)
	for i := 0; i < len(encoded); i += licenseGroupSize {
		groups = append(groups, encoded[i:i+licenseGroupSize])
	}

	return strings.Join(groups, "-"), nil
}
