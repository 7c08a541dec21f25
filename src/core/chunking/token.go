package chunking

import (
	"strings"
	"unicode"
)

// CharsPerToken is the fixed characters-per-token ratio used for chunk
// sizing. It is a deliberate approximation: sizing decisions only need to
// be in the right ballpark, and an exact provider tokenizer would drag a
// model vocabulary into a pure text transformation.
const CharsPerToken = 4

// EstimateTokens returns the estimated token count of text.
func EstimateTokens(text string) int {
	return len(text) / CharsPerToken
}

// SplitSentences splits text into sentences without ever cutting inside
// one. A sentence ends at '.', '!' or '?' followed by whitespace and an
// upper-case letter, an opening quote, or end of input. A period followed
// by a digit or lower-case letter is treated as internal punctuation, so
// identifiers like "S2.14" and abbreviations survive intact.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	var sentences []string
	start := 0

	for i := 0; i < len(runes); i++ {
		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}

		// Consume trailing closers like quotes or parens
		end := i
		for end+1 < len(runes) && isSentenceCloser(runes[end+1]) {
			end++
		}

		if end+1 >= len(runes) {
			sentences = appendSentence(sentences, string(runes[start:]))
			start = len(runes)
			break
		}

		if !unicode.IsSpace(runes[end+1]) {
			continue
		}

		// Find the first non-space rune after the boundary candidate
		next := end + 1
		for next < len(runes) && unicode.IsSpace(runes[next]) {
			next++
		}
		if next >= len(runes) {
			sentences = appendSentence(sentences, string(runes[start:]))
			start = len(runes)
			break
		}
		if unicode.IsUpper(runes[next]) || runes[next] == '"' || runes[next] == '(' {
			sentences = appendSentence(sentences, string(runes[start:end+1]))
			start = next
			i = next - 1
		}
	}

	if start < len(runes) {
		sentences = appendSentence(sentences, string(runes[start:]))
	}
	return sentences
}

func isSentenceCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’':
		return true
	}
	return false
}

func appendSentence(sentences []string, s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return sentences
	}
	return append(sentences, s)
}

// SplitParagraphs splits text at blank-line boundaries, trimming each
// paragraph and dropping empty ones.
func SplitParagraphs(text string) []string {
	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// groupByBudget packs ordered pieces into consecutive groups whose
// estimated token total stays within budget. A single piece over budget
// forms its own group: pieces are never broken apart here.
func groupByBudget(pieces []string, budget int, joiner string) []string {
	if len(pieces) == 0 {
		return nil
	}

	var groups []string
	var current []string
	currentTokens := 0

	for _, piece := range pieces {
		tokens := EstimateTokens(piece)
		if len(current) > 0 && currentTokens+tokens > budget {
			groups = append(groups, strings.Join(current, joiner))
			current = current[:0]
			currentTokens = 0
		}
		current = append(current, piece)
		currentTokens += tokens
	}
	if len(current) > 0 {
		groups = append(groups, strings.Join(current, joiner))
	}
	return groups
}
