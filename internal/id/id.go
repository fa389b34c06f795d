// Package id generates the prefixed identifiers used for records and tokens.
package id

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for the identifiers minted by the client and server.
const (
	PrefixRecommendation = "rec"
	PrefixRequest        = "req"
)

// Generate returns prefix + "-" + a 21 character NanoID, e.g. "rec-V1StGXR8_Z5jdHi6B-myT".
// Record ids are minted client-side while offline, so they must be globally
// unique without coordination.
func Generate(prefix string) (string, error) {
	nid, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + nid, nil
}

// MustGenerate is like Generate but panics if the system has no entropy.
func MustGenerate(prefix string) string {
	v, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return v
}

// NewRecommendation returns a fresh recommendation id.
func NewRecommendation() (string, error) {
	return Generate(PrefixRecommendation)
}

// HasPrefix reports whether v was minted with the given prefix.
func HasPrefix(v, prefix string) bool {
	return strings.HasPrefix(v, prefix+"-") && len(v) > len(prefix)+1
}
