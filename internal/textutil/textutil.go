// Package textutil provides the lexical helpers shared by the resolver:
// tokenizing, suffix stemming, token-overlap similarity and a few
// substring predicates.
//
// The stemmer is deliberately crude. Matching tables elsewhere in the
// codebase are written against its exact output ("library" stays
// "library", "studies" becomes "studie"), so it must not be made smarter.
package textutil

import (
	"strings"
	"unicode/utf8"
)

// isWordByte reports whether b belongs to the ASCII word class [A-Za-z0-9_].
// Every other byte, including every byte of a multi-byte rune, separates tokens.
func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// Tokenize lowercases s and splits it on runs of non-word characters.
// Empty tokens are discarded.
func Tokenize(s string) []string {
	lower := strings.ToLower(s)
	tokens := make([]string, 0, 8)
	start := -1
	for i := 0; i < len(lower); i++ {
		if isWordByte(lower[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, lower[start:i])
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, lower[start:])
	}
	return tokens
}

// Stem strips at most one suffix from word.
// Words shorter than four characters are returned unchanged; otherwise the
// first matching rule of "ing", "ed", "s" is applied.
func Stem(word string) string {
	if len(word) < 4 {
		return word
	}
	switch {
	case strings.HasSuffix(word, "ing"):
		return word[:len(word)-3]
	case strings.HasSuffix(word, "ed"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "s"):
		return word[:len(word)-1]
	}
	return word
}

// StemAll returns the stemmed form of every token, preserving order.
func StemAll(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = Stem(t)
	}
	return out
}

// TokenSet tokenizes and stems s into a set.
func TokenSet(s string) map[string]struct{} {
	tokens := Tokenize(s)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[Stem(t)] = struct{}{}
	}
	return set
}

// Similarity returns the Jaccard index of the stemmed token sets of a and b.
// Two strings without any tokens have similarity 0.
func Similarity(a, b string) float64 {
	setA := TokenSet(a)
	setB := TokenSet(b)

	union := len(setA)
	shared := 0
	for t := range setB {
		if _, ok := setA[t]; ok {
			shared++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

// ContainsAny reports whether s contains any of the substrings.
func ContainsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// FirstContained returns the first of subs contained in s.
func FirstContained(s string, subs []string) (string, bool) {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return sub, true
		}
	}
	return "", false
}

// AnyIn reports whether any token is a member of set.
func AnyIn(tokens []string, set map[string]struct{}) bool {
	for _, t := range tokens {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

// Set builds a membership set from words.
func Set(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Truncate shortens s to at most maxRunes runes, appending "..." when cut.
// Used to keep user text in log lines bounded.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes]) + "..."
}

// IsBlank reports whether s is empty or only whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
