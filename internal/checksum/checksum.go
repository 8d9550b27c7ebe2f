// Package checksum computes the content digests used to detect changed
// documents.
package checksum

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
)

// Algo selects a digest.
type Algo int

const (
	SHA256 Algo = iota
	// MD5 matches the ETag S3 reports for single-part puts.
	MD5
)

// Sum returns the hex-encoded digest of data.
func (a Algo) Sum(data []byte) string {
	switch a {
	case MD5:
		h := md5.Sum(data)
		return hex.EncodeToString(h[:])
	default:
		h := sha256.Sum256(data)
		return hex.EncodeToString(h[:])
	}
}

func (a Algo) String() string {
	if a == MD5 {
		return "md5"
	}
	return "sha256"
}

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	return SHA256.Sum(data)
}
