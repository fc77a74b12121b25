package prop

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainTree   = "propmig/tree/v1"
	DomainRecord = "propmig/record/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint hashes the canonical form of t. Two trees decoded from
// differently ordered streams with the same content have equal fingerprints.
func Fingerprint(t Tree) (string, error) {
	canonical, err := MarshalCanonical(t)
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTree, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(t Tree) string {
	fp, err := Fingerprint(t)
	if err != nil {
		panic(err)
	}
	return fp
}

// RecordDigest hashes a raw record payload.
func RecordDigest(payload []byte) string {
	return hashWithDomain(DomainRecord, payload)
}
