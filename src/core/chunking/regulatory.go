package chunking

import (
	"fmt"
	"regexp"
	"strings"
)

const DefaultRegulatoryMaxTokens = 512

// paragraphIDPattern recognizes structured paragraph identifiers at the
// start of a line: a letter+digit standard prefix, a dotted number, and
// optional parenthesized sub-letter or roman-numeral suffixes,
// e.g. "S2.14", "S1.27(b)", "S2.14(a)(iv)".
var paragraphIDPattern = regexp.MustCompile(`^([A-Z]{1,3}\d{1,2})\.(\d+(?:\.\d+)*)((?:\([a-z]{1,5}\))*)`)

// subRequirementPattern extracts sub-requirement identifiers embedded in
// paragraph text, e.g. "(a)", "(iv)".
var subRequirementPattern = regexp.MustCompile(`\(([a-z]{1,5})\)`)

var headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*$`)

// pillarKeywords maps section-heading keywords to the thematic pillar tag
// attached to regulatory chunks. First match wins, checked in order.
var pillarKeywords = []struct {
	keyword string
	pillar  string
}{
	{"governance", "governance"},
	{"strategy", "strategy"},
	{"risk", "risk_management"},
	{"metric", "metrics_targets"},
	{"target", "metrics_targets"},
}

// CounterpartRegistry resolves a paragraph identifier in one standard to
// its counterpart paragraph in a related standard. It is constructed
// explicitly and injected; an empty registry resolves nothing.
type CounterpartRegistry struct {
	counterparts map[string]string
}

// NewCounterpartRegistry builds a registry from paragraph-id pairs.
func NewCounterpartRegistry(pairs map[string]string) *CounterpartRegistry {
	m := make(map[string]string, len(pairs))
	for id, counterpart := range pairs {
		m[id] = counterpart
	}
	return &CounterpartRegistry{counterparts: m}
}

// Lookup returns the counterpart paragraph id, or "" when none is known.
func (r *CounterpartRegistry) Lookup(paragraphID string) string {
	if r == nil {
		return ""
	}
	return r.counterparts[paragraphID]
}

// RegulatoryChunker cuts a regulatory standard text into paragraph-level
// chunks. It walks the document line by line, tracking the heading stack
// and the pillar classification of the current section, and flushes the
// paragraph buffer whenever a new paragraph identifier is detected, a
// heading boundary is crossed, or the document ends.
type RegulatoryChunker struct {
	standard     string
	maxTokens    int
	counterparts *CounterpartRegistry
}

type RegulatoryOption func(*RegulatoryChunker)

// WithRegulatoryMaxTokens overrides the per-chunk body token budget.
func WithRegulatoryMaxTokens(n int) RegulatoryOption {
	return func(c *RegulatoryChunker) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithCounterparts injects the cross-standard counterpart registry.
func WithCounterparts(r *CounterpartRegistry) RegulatoryOption {
	return func(c *RegulatoryChunker) {
		c.counterparts = r
	}
}

// NewRegulatoryChunker creates a chunker for the named standard
// (e.g. "IFRS S2").
func NewRegulatoryChunker(standard string, opts ...RegulatoryOption) *RegulatoryChunker {
	c := &RegulatoryChunker{
		standard:  standard,
		maxTokens: DefaultRegulatoryMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chunk transforms the raw standard text into ordered chunks. Malformed
// input never fails: text with no headings or no paragraph identifiers is
// emitted as unidentified paragraph chunks under the root section.
func (c *RegulatoryChunker) Chunk(text string) []Chunk {
	var (
		chunks      []Chunk
		headings    []string
		paragraphID string
		buffer      []string
	)
	pillar := classifyPillar(nil)

	flush := func() {
		body := strings.TrimSpace(strings.Join(buffer, "\n"))
		buffer = buffer[:0]
		if body == "" {
			return
		}
		chunks = append(chunks, c.buildChunks(body, headings, pillar, paragraphID)...)
	}

	for _, line := range strings.Split(text, "\n") {
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			flush()
			paragraphID = ""
			// A heading line carrying a paragraph id and its body, like
			// "### S2.14(a)(iv) An entity shall ...", is a paragraph
			// boundary, not a section boundary.
			if id := paragraphIDPattern.FindString(m[2]); id != "" {
				if rest := strings.TrimSpace(m[2][len(id):]); rest != "" {
					paragraphID = id
					buffer = append(buffer, rest)
					continue
				}
			}
			level := len(m[1])
			if level-1 < len(headings) {
				headings = headings[:level-1]
			}
			headings = append(headings, m[2])
			pillar = classifyPillar(headings)
			continue
		}

		trimmed := strings.TrimSpace(line)
		if m := paragraphIDPattern.FindString(trimmed); m != "" {
			flush()
			paragraphID = m
		}
		buffer = append(buffer, line)
	}
	flush()

	return chunks
}

// buildChunks assembles one flushed paragraph into chunk(s), splitting an
// oversized body at sentence boundaries into ordered parts that each
// repeat the header.
func (c *RegulatoryChunker) buildChunks(body string, headings []string, pillar, paragraphID string) []Chunk {
	meta := RegulatoryMetadata{
		ParagraphID:     paragraphID,
		Pillar:          pillar,
		SectionPath:     append([]string(nil), headings...),
		SubRequirements: extractSubRequirements(body),
		CounterpartID:   c.counterparts.Lookup(paragraphID),
	}
	header := c.header(headings, paragraphID)

	if EstimateTokens(body) <= c.maxTokens {
		return []Chunk{{Text: header + "\n" + body, Metadata: meta}}
	}

	parts := groupByBudget(SplitSentences(body), c.maxTokens, " ")
	out := make([]Chunk, 0, len(parts))
	for i, part := range parts {
		partHeader := fmt.Sprintf("%s [Part %d/%d]", header, i+1, len(parts))
		out = append(out, Chunk{Text: partHeader + "\n" + part, Metadata: meta})
	}
	return out
}

func (c *RegulatoryChunker) header(headings []string, paragraphID string) string {
	segments := []string{c.standard}
	if len(headings) > 0 {
		segments = append(segments, strings.Join(headings, " > "))
	}
	if paragraphID != "" {
		segments = append(segments, paragraphID)
	}
	return "[" + strings.Join(segments, " | ") + "]"
}

// classifyPillar matches the innermost heading first so a subsection like
// "Climate-related targets" under "Strategy" tags as metrics_targets.
func classifyPillar(headings []string) string {
	for i := len(headings) - 1; i >= 0; i-- {
		heading := strings.ToLower(headings[i])
		for _, kw := range pillarKeywords {
			if strings.Contains(heading, kw.keyword) {
				return kw.pillar
			}
		}
	}
	return "general"
}

func extractSubRequirements(body string) []string {
	matches := subRequirementPattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	var subReqs []string
	for _, m := range matches {
		id := "(" + m[1] + ")"
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		subReqs = append(subReqs, id)
	}
	return subReqs
}
