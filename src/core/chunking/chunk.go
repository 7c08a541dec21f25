package chunking

import (
	"encoding/json"
	"fmt"
)

// CorpusKind identifies the category a chunk's source text belongs to.
type CorpusKind string

const (
	KindRegulatoryPrimary   CorpusKind = "regulatory_standard_primary"
	KindRegulatorySecondary CorpusKind = "regulatory_standard_secondary"
	KindIndustryTaxonomy    CorpusKind = "industry_taxonomy"
	KindDocument            CorpusKind = "document"
)

// ParseCorpusKind validates a raw kind string coming from an API request
// or CLI flag.
func ParseCorpusKind(s string) (CorpusKind, error) {
	kind := CorpusKind(s)
	if !kind.Valid() {
		return "", fmt.Errorf("unknown corpus kind %q", s)
	}
	return kind, nil
}

// Valid reports whether the kind is one of the known corpus kinds.
func (k CorpusKind) Valid() bool {
	switch k {
	case KindRegulatoryPrimary, KindRegulatorySecondary, KindIndustryTaxonomy, KindDocument:
		return true
	}
	return false
}

// Shared reports whether chunks of this kind belong to a shared corpus
// rather than to a single owning document.
func (k CorpusKind) Shared() bool {
	return k.Valid() && k != KindDocument
}

// Metadata is the per-corpus-kind variant attached to a chunk. Exactly one
// concrete type exists per corpus kind; regulatory primary and secondary
// share RegulatoryMetadata.
type Metadata interface {
	isMetadata()
}

// RegulatoryMetadata describes a chunk cut from a regulatory standard text.
type RegulatoryMetadata struct {
	ParagraphID     string   `json:"paragraphId,omitempty"`
	Pillar          string   `json:"pillar,omitempty"`
	SectionPath     []string `json:"sectionPath,omitempty"`
	SubRequirements []string `json:"subRequirements,omitempty"`
	CounterpartID   string   `json:"counterpartId,omitempty"`
}

// TaxonomyMetadata describes a chunk cut from an industry taxonomy document.
type TaxonomyMetadata struct {
	Sector       string   `json:"sector,omitempty"`
	Topic        string   `json:"topic,omitempty"`
	MetricCodes  []string `json:"metricCodes,omitempty"`
	StandardCode string   `json:"standardCode,omitempty"`
}

// DocumentMetadata describes a chunk cut from an uploaded document.
type DocumentMetadata struct {
	PageStart   int      `json:"pageStart"`
	PageEnd     int      `json:"pageEnd"`
	SectionPath []string `json:"sectionPath,omitempty"`
	HasTable    bool     `json:"hasTable"`
	ChunkIndex  int      `json:"chunkIndex"`
}

func (RegulatoryMetadata) isMetadata() {}
func (TaxonomyMetadata) isMetadata()   {}
func (DocumentMetadata) isMetadata()   {}

// Chunk is the output unit of a chunker: context-tagged text plus the
// metadata variant matching the source corpus kind. Identifiers and
// embeddings are attached later, at write time.
type Chunk struct {
	Text     string
	Metadata Metadata
}

// EncodeMetadata serializes a metadata variant for storage.
func EncodeMetadata(m Metadata) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chunk metadata: %w", err)
	}
	return data, nil
}

// DecodeMetadata deserializes stored metadata back into the variant
// selected by the chunk's corpus kind.
func DecodeMetadata(kind CorpusKind, data []byte) (Metadata, error) {
	if len(data) == 0 {
		data = []byte("{}")
	}
	switch kind {
	case KindRegulatoryPrimary, KindRegulatorySecondary:
		var m RegulatoryMetadata
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to decode regulatory metadata: %w", err)
		}
		return m, nil
	case KindIndustryTaxonomy:
		var m TaxonomyMetadata
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to decode taxonomy metadata: %w", err)
		}
		return m, nil
	case KindDocument:
		var m DocumentMetadata
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to decode document metadata: %w", err)
		}
		return m, nil
	}
	return nil, fmt.Errorf("unknown corpus kind %q", kind)
}
