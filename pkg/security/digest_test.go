package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentDigest(t *testing.T) {
	doc := []byte("%PDF-1.3 certificate body")

	digest := DocumentDigest(doc)

	assert.Len(t, digest, 64)
	assert.Equal(t, digest, DocumentDigest(doc), "digest must be deterministic")
	assert.True(t, VerifyDocument(doc, digest))
	assert.False(t, VerifyDocument([]byte("tampered"), digest))
}
