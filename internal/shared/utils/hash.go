package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hasher provides deterministic hashing for identity derivation
type Hasher struct{}

// DefaultHasher returns the standard hasher
func DefaultHasher() *Hasher {
	return &Hasher{}
}

// Hash computes a SHA-256 hash of the input data
func (h *Hasher) Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashString computes a hash of a string
func (h *Hasher) HashString(s string) string {
	return h.Hash([]byte(s))
}

// HashFields computes a hash from multiple fields.
// Fields are joined with a delimiter in the given order; order matters so
// (name, path) and (path, name) produce distinct identities.
func (h *Hasher) HashFields(fields ...string) string {
	return h.HashString(strings.Join(fields, "|"))
}

// ExtensionIdentifier derives stable extension ids from package properties
type ExtensionIdentifier struct {
	hasher *Hasher
}

// NewExtensionIdentifier creates an extension identifier
func NewExtensionIdentifier(hasher *Hasher) *ExtensionIdentifier {
	if hasher == nil {
		hasher = DefaultHasher()
	}
	return &ExtensionIdentifier{hasher: hasher}
}

// DeriveID generates a deterministic id for an extension from its declared
// name and source path. The same package validated twice maps to the same
// id, which is what makes the already-installed guard possible.
func (ei *ExtensionIdentifier) DeriveID(name, sourcePath string) string {
	full := ei.hasher.HashFields(name, sourcePath)
	return full[:32]
}

// VerifyID checks whether an id matches the expected package properties
func (ei *ExtensionIdentifier) VerifyID(id, name, sourcePath string) bool {
	return id == ei.DeriveID(name, sourcePath)
}
