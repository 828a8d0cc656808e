package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"lukechampine.com/blake3"
)

type HashAlgo string

const (
	HashAlgoSHA256 HashAlgo = "sha256"
	HashAlgoBLAKE3 HashAlgo = "blake3"
)

// DefaultAlgo is used for response content fingerprints.
const DefaultAlgo = HashAlgoBLAKE3

// HashBytes returns the hash of bytes as a hex string using the specified algorithm.
// Supported algorithms: "sha256" and "blake3".
func HashBytes(data []byte, algo HashAlgo) (string, error) {
	switch algo {
	case HashAlgoSHA256:
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:]), nil
	case HashAlgoBLAKE3:
		sum := blake3.Sum256(data)
		return hex.EncodeToString(sum[:]), nil
	default:
		return "", fmt.Errorf("unsupported hash algorithm: %s", algo)
	}
}

// Fingerprint returns a short, algorithm-prefixed digest of a response body,
// e.g. "blake3:3f1c9e0a7b2d". Empty bodies yield "".
func Fingerprint(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	sum, _ := HashBytes(body, DefaultAlgo)
	return string(DefaultAlgo) + ":" + sum[:12]
}
