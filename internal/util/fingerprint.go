package util

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// contentFingerprintLen keeps content fingerprints short; they are
// diagnostic and collisions only cost cache optimality.
const contentFingerprintLen = 16

// ParamsFingerprint derives a deterministic digest from the semantically
// relevant generation parameters. Question types are normalized (trimmed,
// lowercased, sorted) before hashing so input order never affects the key.
func ParamsFingerprint(questionTypes []string, difficulty, technique string) string {
	normalized := make([]string, 0, len(questionTypes))
	for _, t := range questionTypes {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			normalized = append(normalized, t)
		}
	}
	sort.Strings(normalized)

	var b strings.Builder
	b.WriteString("technique=")
	b.WriteString(strings.ToLower(strings.TrimSpace(technique)))
	b.WriteString("|difficulty=")
	b.WriteString(strings.ToLower(strings.TrimSpace(difficulty)))
	b.WriteString("|types=")
	b.WriteString(strings.Join(normalized, ","))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// ContentFingerprint digests the assembled material text, truncated to a
// fixed short length. Stored with cache entries to support invalidation
// decisions when the underlying materials change.
func ContentFingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:contentFingerprintLen]
}
