package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// unitSeparator keeps tuple fields from running into each other
const unitSeparator = "\x1f"

// Canonical lower-cases and collapses whitespace. Idempotent.
func Canonical(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// CanonicalPredicate canonicalizes a predicate to lower snake case
func CanonicalPredicate(p string) string {
	p = Canonical(p)
	p = strings.NewReplacer("-", " ", "_", " ").Replace(p)
	return strings.Join(strings.Fields(p), "_")
}

// ClaimUID computes the stable identity of a fact at an evidence location:
// sha256(canonical_source, predicate, canonical_target, doc_content_hash,
// start_char, end_char). Version and prompt labels never take part.
func ClaimUID(source, predicate, target string, span *EvidenceSpan) string {
	var hash, start, end string
	if span != nil {
		hash = span.DocContentHash
		start = strconv.Itoa(span.StartChar)
		end = strconv.Itoa(span.EndChar)
	}

	tuple := strings.Join([]string{
		Canonical(source),
		CanonicalPredicate(predicate),
		Canonical(target),
		hash,
		start,
		end,
	}, unitSeparator)

	sum := sha256.Sum256([]byte(tuple))
	return hex.EncodeToString(sum[:])
}
