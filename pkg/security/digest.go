package security

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// DocumentDigest returns the hex-encoded SHA3-256 digest of a rendered
// document. The digest is recorded per issued certificate so a downloaded
// or archived copy can later be checked for tampering.
func DocumentDigest(data []byte) string {
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyDocument reports whether data matches a previously recorded digest.
func VerifyDocument(data []byte, digest string) bool {
	return DocumentDigest(data) == digest
}
