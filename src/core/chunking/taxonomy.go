package chunking

import (
	"regexp"
	"sort"
	"strings"
)

const (
	DefaultTaxonomyMaxTokens = 512

	// UnknownStandardCode is attached when no sector keyword matches the
	// source document's name.
	UnknownStandardCode = "UNKNOWN"
)

// metricCodePattern recognizes industry metric codes of the
// "EM-MM-110a.1" shape.
var metricCodePattern = regexp.MustCompile(`\b[A-Z]{2}-[A-Z]{2}-\d{3}[a-z]\.\d+\b`)

// StandardCodeTable derives a sector standard code from a source
// document's name by keyword lookup. Constructed explicitly and injected.
type StandardCodeTable struct {
	keywords []string
	codes    map[string]string
}

// NewStandardCodeTable builds a table mapping lower-case document-name
// keywords to standard codes. Keywords are checked in sorted order so
// resolution is deterministic.
func NewStandardCodeTable(codes map[string]string) *StandardCodeTable {
	m := make(map[string]string, len(codes))
	keywords := make([]string, 0, len(codes))
	for keyword, code := range codes {
		keyword = strings.ToLower(keyword)
		m[keyword] = code
		keywords = append(keywords, keyword)
	}
	sort.Strings(keywords)
	return &StandardCodeTable{keywords: keywords, codes: m}
}

// Resolve returns the code for the first keyword found in the document
// name, or UnknownStandardCode when nothing matches.
func (t *StandardCodeTable) Resolve(documentName string) string {
	if t == nil {
		return UnknownStandardCode
	}
	name := strings.ToLower(documentName)
	for _, keyword := range t.keywords {
		if strings.Contains(name, keyword) {
			return t.codes[keyword]
		}
	}
	return UnknownStandardCode
}

// TaxonomyChunker cuts an industry taxonomy document into topic-level
// chunks. Content is grouped under level-2/3 headings; level-1 headings
// name the sector. Oversized topics split at paragraph boundaries, each
// sub-chunk repeating the topic header.
type TaxonomyChunker struct {
	documentName string
	maxTokens    int
	codes        *StandardCodeTable
}

type TaxonomyOption func(*TaxonomyChunker)

// WithTaxonomyMaxTokens overrides the per-chunk body token budget.
func WithTaxonomyMaxTokens(n int) TaxonomyOption {
	return func(c *TaxonomyChunker) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithStandardCodes injects the document-name to standard-code table.
func WithStandardCodes(t *StandardCodeTable) TaxonomyOption {
	return func(c *TaxonomyChunker) {
		c.codes = t
	}
}

// NewTaxonomyChunker creates a chunker for the named taxonomy document.
func NewTaxonomyChunker(documentName string, opts ...TaxonomyOption) *TaxonomyChunker {
	c := &TaxonomyChunker{
		documentName: documentName,
		maxTokens:    DefaultTaxonomyMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chunk transforms the raw taxonomy text into ordered topic chunks.
func (c *TaxonomyChunker) Chunk(text string) []Chunk {
	standardCode := c.codes.Resolve(c.documentName)

	var (
		chunks []Chunk
		sector string
		topic  string
		buffer []string
	)

	flush := func() {
		body := strings.TrimSpace(strings.Join(buffer, "\n"))
		buffer = buffer[:0]
		if body == "" {
			return
		}
		chunks = append(chunks, c.buildChunks(body, sector, topic, standardCode)...)
	}

	for _, line := range strings.Split(text, "\n") {
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			level := len(m[1])
			switch {
			case level == 1:
				flush()
				sector = m[2]
				topic = ""
			case level == 2 || level == 3:
				flush()
				topic = m[2]
			default:
				// Deeper headings stay inside the current topic.
				buffer = append(buffer, line)
			}
			continue
		}
		buffer = append(buffer, line)
	}
	flush()

	return chunks
}

func (c *TaxonomyChunker) buildChunks(body, sector, topic, standardCode string) []Chunk {
	meta := TaxonomyMetadata{
		Sector:       sector,
		Topic:        topic,
		MetricCodes:  extractMetricCodes(body),
		StandardCode: standardCode,
	}
	header := c.header(sector, topic)

	if EstimateTokens(body) <= c.maxTokens {
		return []Chunk{{Text: header + "\n" + body, Metadata: meta}}
	}

	parts := groupByBudget(SplitParagraphs(body), c.maxTokens, "\n\n")
	out := make([]Chunk, 0, len(parts))
	for _, part := range parts {
		out = append(out, Chunk{Text: header + "\n" + part, Metadata: meta})
	}
	return out
}

func (c *TaxonomyChunker) header(sector, topic string) string {
	var segments []string
	if sector != "" {
		segments = append(segments, sector)
	}
	if topic != "" {
		segments = append(segments, topic)
	}
	if len(segments) == 0 {
		segments = append(segments, c.documentName)
	}
	return "[" + strings.Join(segments, " | ") + "]"
}

func extractMetricCodes(body string) []string {
	matches := metricCodePattern.FindAllString(body, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	var codes []string
	for _, code := range matches {
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}
