package asset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// kindPrefixes maps asset kinds to their single-letter ID prefix.
// Unknown kinds get "X" so malformed data remains traceable.
var kindPrefixes = map[Kind]string{
	KindSystem:   "S",
	KindMethod:   "M",
	KindParams:   "P",
	KindResults:  "R",
	KindArtifact: "A",
}

// idHashLen is the number of canonical-payload hash characters carried in
// an asset ID.
const idHashLen = 6

// HashPayload computes the full SHA-256 hex digest of a payload's
// canonical JSON. Returns an error if the payload cannot be canonically
// marshaled.
func HashPayload(payload map[string]any) (string, error) {
	canonical, err := MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("hash payload: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// ID computes the content-addressed identifier for an asset:
// kind prefix + first 6 hex characters of SHA-256(canonical_json(payload)).
// The ID is stable across restarts and processes given the same inputs.
func ID(kind Kind, payload map[string]any) (string, error) {
	digest, err := HashPayload(payload)
	if err != nil {
		return "", err
	}
	prefix, ok := kindPrefixes[kind]
	if !ok {
		prefix = "X"
	}
	return prefix + digest[:idHashLen], nil
}

// MustID is like ID but panics on error. Use only in tests or when the
// payload is known to be canonical-marshalable.
func MustID(kind Kind, payload map[string]any) string {
	id, err := ID(kind, payload)
	if err != nil {
		panic(err)
	}
	return id
}

// NewRunID generates a globally unique run identifier. Unlike asset IDs,
// run IDs are independent of content: two runs over identical inputs get
// distinct IDs.
func NewRunID() string {
	return "R" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
