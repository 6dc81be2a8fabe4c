package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Fingerprint derives a stable exact-match key from content: a SHA-256 over
// the trimmed, lowercased text. Two records with the same normalized content
// always share a fingerprint.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(NormalizeContent(content)))
	return hex.EncodeToString(sum[:])
}

// NormalizeContent trims surrounding whitespace and lowercases in one pass.
func NormalizeContent(s string) string {
	start, end := 0, len(s)
	for start < end {
		r, size := utf8.DecodeRuneInString(s[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		start += size
	}
	for start < end {
		r, size := utf8.DecodeLastRuneInString(s[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		end -= size
	}
	if start >= end {
		return ""
	}
	var b strings.Builder
	b.Grow(end - start)
	for _, r := range s[start:end] {
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
