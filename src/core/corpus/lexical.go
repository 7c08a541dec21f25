package corpus

import (
	"regexp"
	"strings"
)

// lexicalTokenPattern extracts index terms: letter/digit runs, keeping
// internal hyphens and dots so metric codes like "EM-MM-110a.1" and
// paragraph ids like "S2.14" survive as single terms.
var lexicalTokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:[-.][\p{L}\p{N}]+)*`)

var lexicalStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "in": {}, "is": {}, "it": {},
	"its": {}, "of": {}, "on": {}, "or": {}, "shall": {}, "that": {},
	"the": {}, "to": {}, "was": {}, "were": {}, "which": {}, "will": {},
	"with": {},
}

// suffixes stripped by the light stemmer, longest first.
var stemSuffixes = []string{"ingly", "edly", "ing", "ed", "es", "ly", "s"}

// DeriveLexical produces the lexical representation of text that the
// store indexes for keyword scoring: lower-cased, stopword-filtered,
// lightly stemmed terms joined by single spaces. The same derivation is
// applied to queries so index-side and query-side terms agree.
func DeriveLexical(text string) string {
	tokens := lexicalTokenPattern.FindAllString(strings.ToLower(text), -1)
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, stop := lexicalStopwords[tok]; stop {
			continue
		}
		terms = append(terms, stemTerm(tok))
	}
	return strings.Join(terms, " ")
}

// stemTerm strips one inflectional suffix, keeping a stem of at least
// three characters. "ies" collapses to "y" first so "policies" and
// "policy" meet at the same term.
func stemTerm(term string) string {
	if strings.HasSuffix(term, "ies") && len(term) > 4 {
		return term[:len(term)-3] + "y"
	}
	for _, suffix := range stemSuffixes {
		if strings.HasSuffix(term, suffix) && len(term)-len(suffix) >= 3 {
			return term[:len(term)-len(suffix)]
		}
	}
	return term
}
