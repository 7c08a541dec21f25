package chunking

import (
	"regexp"
	"strings"
)

const (
	DefaultDocumentMinTokens     = 100
	DefaultDocumentMaxTokens     = 800
	DefaultDocumentTargetTokens  = 512
	DefaultDocumentOverlapTokens = 80
)

// tableSeparatorPattern matches the delimiter row of a markdown table,
// e.g. "|---|---|" or ":--- | ---:".
var tableSeparatorPattern = regexp.MustCompile(`^\s*\|?[\s:|-]*-{3,}[\s:|-]*\|?\s*$`)

// PageBoundary maps a character offset in the extracted text to the page
// it starts on. Boundaries arrive ordered by StartOffset from the
// extraction collaborator.
type PageBoundary struct {
	Page        int
	StartOffset int
}

// DocumentChunker cuts an uploaded document into section-level chunks. It
// builds a section tree from heading levels, tracks character offsets so
// each chunk maps back to page numbers, splits oversized sections into
// overlapping windows, and merges undersized remainders into the previous
// chunk.
type DocumentChunker struct {
	minTokens     int
	maxTokens     int
	targetTokens  int
	overlapTokens int
}

type DocumentOption func(*DocumentChunker)

// WithDocumentTokenRange overrides the [min,max] body token window.
func WithDocumentTokenRange(minTokens, maxTokens int) DocumentOption {
	return func(c *DocumentChunker) {
		if minTokens > 0 {
			c.minTokens = minTokens
		}
		if maxTokens > 0 {
			c.maxTokens = maxTokens
		}
	}
}

// WithDocumentWindow overrides the split target and overlap budgets.
func WithDocumentWindow(targetTokens, overlapTokens int) DocumentOption {
	return func(c *DocumentChunker) {
		if targetTokens > 0 {
			c.targetTokens = targetTokens
		}
		if overlapTokens >= 0 {
			c.overlapTokens = overlapTokens
		}
	}
}

// NewDocumentChunker creates a hierarchical document chunker.
func NewDocumentChunker(opts ...DocumentOption) *DocumentChunker {
	c := &DocumentChunker{
		minTokens:     DefaultDocumentMinTokens,
		maxTokens:     DefaultDocumentMaxTokens,
		targetTokens:  DefaultDocumentTargetTokens,
		overlapTokens: DefaultDocumentOverlapTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// paragraphBlock is a blank-line-separated block with its character offset
// in the original text, kept so windows map back to pages.
type paragraphBlock struct {
	text   string
	offset int
}

// section is a node of the heading tree flattened to its own content.
type section struct {
	path   []string
	blocks []paragraphBlock
}

// Chunk transforms extracted document text plus the page-boundary list
// into ordered chunks. An absent page map means everything is page 1. A
// document with no headings becomes one top-level section.
func (c *DocumentChunker) Chunk(text string, pages []PageBoundary) []Chunk {
	sections := parseSections(text)

	var chunks []Chunk
	for _, sec := range sections {
		chunks = c.appendSection(chunks, sec, pages)
	}

	for i := range chunks {
		meta := chunks[i].Metadata.(DocumentMetadata)
		meta.ChunkIndex = i
		chunks[i].Metadata = meta
	}
	return chunks
}

// appendSection emits a section as one chunk when it fits the token
// window, splits it into overlapping windows when oversized, and merges
// it into the previous chunk when undersized.
func (c *DocumentChunker) appendSection(chunks []Chunk, sec section, pages []PageBoundary) []Chunk {
	body := joinBlocks(sec.blocks)
	if body == "" {
		return chunks
	}

	tokens := EstimateTokens(body)
	switch {
	case tokens > c.maxTokens:
		return append(chunks, c.splitSection(sec, pages)...)
	case tokens < c.minTokens && len(chunks) > 0:
		return c.mergeIntoPrevious(chunks, sec, pages)
	default:
		return append(chunks, c.buildChunk(sec.path, sec.blocks, pages))
	}
}

// splitSection cuts an oversized section into windows sized toward the
// target token count. Each window after the first starts with the trailing
// paragraphs of the previous window, up to the overlap token budget, so
// cross-boundary context survives. A trailing window below the minimum is
// folded into the previous one.
func (c *DocumentChunker) splitSection(sec section, pages []PageBoundary) []Chunk {
	var windows [][]paragraphBlock
	var current []paragraphBlock
	currentTokens := 0

	for _, block := range sec.blocks {
		tokens := EstimateTokens(block.text)
		if len(current) > 0 && currentTokens+tokens > c.targetTokens {
			windows = append(windows, current)
			carried := trailingByBudget(current, c.overlapTokens)
			current = append([]paragraphBlock(nil), carried...)
			currentTokens = 0
			for _, b := range current {
				currentTokens += EstimateTokens(b.text)
			}
		}
		current = append(current, block)
		currentTokens += tokens
	}
	if len(current) > 0 {
		if currentTokens < c.minTokens && len(windows) > 0 {
			last := len(windows) - 1
			merged := appendNewBlocks(windows[last], current)
			if EstimateTokens(joinBlocks(merged)) <= c.maxTokens {
				windows[last] = merged
			} else {
				windows = append(windows, current)
			}
		} else {
			windows = append(windows, current)
		}
	}

	out := make([]Chunk, 0, len(windows))
	for _, window := range windows {
		out = append(out, c.buildChunk(sec.path, window, pages))
	}
	return out
}

// mergeIntoPrevious appends an undersized section to the previously
// emitted chunk, unless that would blow its token budget.
func (c *DocumentChunker) mergeIntoPrevious(chunks []Chunk, sec section, pages []PageBoundary) []Chunk {
	last := len(chunks) - 1
	prev := chunks[last]
	prevMeta := prev.Metadata.(DocumentMetadata)

	body := joinBlocks(sec.blocks)
	merged := prev.Text + "\n\n" + body
	if EstimateTokens(merged) > c.maxTokens+EstimateTokens(headerLine(prevMeta.SectionPath)) {
		return append(chunks, c.buildChunk(sec.path, sec.blocks, pages))
	}

	endOffset := sec.blocks[len(sec.blocks)-1].offset + len(sec.blocks[len(sec.blocks)-1].text)
	prevMeta.PageEnd = pageAt(pages, endOffset)
	prevMeta.HasTable = prevMeta.HasTable || hasTable(body)
	chunks[last] = Chunk{Text: merged, Metadata: prevMeta}
	return chunks
}

func (c *DocumentChunker) buildChunk(path []string, blocks []paragraphBlock, pages []PageBoundary) Chunk {
	body := joinBlocks(blocks)
	start := blocks[0].offset
	end := blocks[len(blocks)-1].offset + len(blocks[len(blocks)-1].text)

	meta := DocumentMetadata{
		PageStart:   pageAt(pages, start),
		PageEnd:     pageAt(pages, end),
		SectionPath: append([]string(nil), path...),
		HasTable:    hasTable(body),
	}
	return Chunk{Text: headerLine(path) + "\n" + body, Metadata: meta}
}

// parseSections walks the document building a flat list of sections with
// per-block character offsets. Text before any heading falls into a root
// section with an empty path.
func parseSections(text string) []section {
	var (
		sections []section
		headings []string
		blocks   []paragraphBlock
		buffer   []string
		bufStart = -1
	)

	endBlock := func() {
		if bufStart < 0 {
			return
		}
		block := strings.TrimRight(strings.Join(buffer, "\n"), "\n \t")
		if strings.TrimSpace(block) != "" {
			blocks = append(blocks, paragraphBlock{text: block, offset: bufStart})
		}
		buffer = buffer[:0]
		bufStart = -1
	}
	endSection := func() {
		endBlock()
		if len(blocks) > 0 {
			sections = append(sections, section{
				path:   append([]string(nil), headings...),
				blocks: blocks,
			})
			blocks = nil
		}
	}

	offset := 0
	for _, line := range strings.Split(text, "\n") {
		lineLen := len(line) + 1 // trailing newline

		if m := headingPattern.FindStringSubmatch(line); m != nil {
			endSection()
			level := len(m[1])
			if level-1 < len(headings) {
				headings = headings[:level-1]
			}
			for len(headings) < level-1 {
				headings = append(headings, "")
			}
			headings = append(headings, m[2])
			offset += lineLen
			continue
		}

		if strings.TrimSpace(line) == "" {
			endBlock()
		} else {
			if bufStart < 0 {
				bufStart = offset
			}
			buffer = append(buffer, line)
		}
		offset += lineLen
	}
	endSection()

	return sections
}

// pageAt returns the page whose boundary range contains the offset, the
// last page when the offset runs past every boundary, and page 1 when no
// page map was supplied.
func pageAt(pages []PageBoundary, offset int) int {
	if len(pages) == 0 {
		return 1
	}
	page := pages[0].Page
	for _, b := range pages {
		if b.StartOffset > offset {
			break
		}
		page = b.Page
	}
	return page
}

// hasTable applies the markdown table heuristic: a pipe-delimited line
// directly followed by a separator row.
func hasTable(body string) bool {
	lines := strings.Split(body, "\n")
	for i := 0; i+1 < len(lines); i++ {
		if strings.Contains(lines[i], "|") && tableSeparatorPattern.MatchString(lines[i+1]) && strings.Contains(lines[i+1], "-") {
			return true
		}
	}
	return false
}

func headerLine(path []string) string {
	if len(path) == 0 {
		return "[Document]"
	}
	return "[" + strings.Join(path, " > ") + "]"
}

func joinBlocks(blocks []paragraphBlock) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, b.text)
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

// trailingByBudget returns the suffix of blocks whose token total fits the
// overlap budget; at most all but one block carry forward.
func trailingByBudget(blocks []paragraphBlock, budget int) []paragraphBlock {
	if budget <= 0 || len(blocks) < 2 {
		return nil
	}
	tokens := 0
	start := len(blocks)
	for i := len(blocks) - 1; i > 0; i-- {
		t := EstimateTokens(blocks[i].text)
		if tokens+t > budget {
			break
		}
		tokens += t
		start = i
	}
	return blocks[start:]
}

// appendNewBlocks appends the blocks of next that are not already at the
// tail of prev (the carried overlap), preserving order.
func appendNewBlocks(prev, next []paragraphBlock) []paragraphBlock {
	merged := append([]paragraphBlock(nil), prev...)
	seen := make(map[int]struct{}, len(prev))
	for _, b := range prev {
		seen[b.offset] = struct{}{}
	}
	for _, b := range next {
		if _, ok := seen[b.offset]; !ok {
			merged = append(merged, b)
		}
	}
	return merged
}
