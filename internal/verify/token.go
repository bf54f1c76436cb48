package verify

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
)

// RecordPrefix is the label under which tenants publish the ownership
// challenge, e.g. _bolt-verify.example.com.
const RecordPrefix = "_bolt-verify"

const tokenBytes = 20

var tokenEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateToken returns a fresh challenge token. Tokens are generated
// exactly once per pending binding and never rotated for verified ones.
func GenerateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate verification token: %w", err)
	}
	return strings.ToLower(tokenEncoding.EncodeToString(buf)), nil
}

// RecordName returns the DNS name the tenant must publish the TXT
// challenge at.
func RecordName(domain string) string {
	return RecordPrefix + "." + strings.TrimSuffix(domain, ".")
}
