package chunking_test

import (
	"reflect"
	"strings"
	"testing"

	"esgrag/src/core/chunking"
)

const taxonomySample = `# Metals & Mining

## Greenhouse Gas Emissions

Gross global Scope 1 emissions, per EM-MM-110a.1, shall be reported.

## Water Management

Total fresh water withdrawn is reported under EM-MM-140a.1 and EM-MM-140a.2.
`

func TestTaxonomyChunkerTopics(t *testing.T) {
	codes := chunking.NewStandardCodeTable(map[string]string{"sasb": "SASB"})
	chunker := chunking.NewTaxonomyChunker("SASB Standards", chunking.WithStandardCodes(codes))

	chunks := chunker.Chunk(taxonomySample)
	if len(chunks) != 2 {
		t.Fatalf("Chunk() produced %d chunks, want 2", len(chunks))
	}

	tests := []struct {
		name       string
		chunk      chunking.Chunk
		wantHeader string
		wantMeta   chunking.TaxonomyMetadata
	}{
		{
			name:       "first topic",
			chunk:      chunks[0],
			wantHeader: "[Metals & Mining | Greenhouse Gas Emissions]",
			wantMeta: chunking.TaxonomyMetadata{
				Sector:       "Metals & Mining",
				Topic:        "Greenhouse Gas Emissions",
				MetricCodes:  []string{"EM-MM-110a.1"},
				StandardCode: "SASB",
			},
		},
		{
			name:       "second topic with two codes",
			chunk:      chunks[1],
			wantHeader: "[Metals & Mining | Water Management]",
			wantMeta: chunking.TaxonomyMetadata{
				Sector:       "Metals & Mining",
				Topic:        "Water Management",
				MetricCodes:  []string{"EM-MM-140a.1", "EM-MM-140a.2"},
				StandardCode: "SASB",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := strings.SplitN(tt.chunk.Text, "\n", 2)[0]
			if header != tt.wantHeader {
				t.Errorf("header = %q, want %q", header, tt.wantHeader)
			}
			got, ok := tt.chunk.Metadata.(chunking.TaxonomyMetadata)
			if !ok {
				t.Fatalf("metadata is %T, want TaxonomyMetadata", tt.chunk.Metadata)
			}
			if !reflect.DeepEqual(got, tt.wantMeta) {
				t.Errorf("metadata = %+v, want %+v", got, tt.wantMeta)
			}
		})
	}
}

func TestTaxonomyChunkerUnknownStandard(t *testing.T) {
	chunker := chunking.NewTaxonomyChunker("Some Document")

	chunks := chunker.Chunk("# Sector\n\n## Topic\n\nBody text.\n")
	if len(chunks) != 1 {
		t.Fatalf("Chunk() produced %d chunks, want 1", len(chunks))
	}
	meta := chunks[0].Metadata.(chunking.TaxonomyMetadata)
	if meta.StandardCode != chunking.UnknownStandardCode {
		t.Errorf("standard code = %q, want %q", meta.StandardCode, chunking.UnknownStandardCode)
	}
}

func TestTaxonomyChunkerOversizedTopic(t *testing.T) {
	paragraph := strings.Repeat("water usage data ", 10) // 170 chars, 42 tokens
	text := "# Sector\n\n## Topic\n\n" + paragraph + "\n\n" + paragraph + "\n"

	chunker := chunking.NewTaxonomyChunker("SASB Standards", chunking.WithTaxonomyMaxTokens(50))
	chunks := chunker.Chunk(text)
	if len(chunks) != 2 {
		t.Fatalf("Chunk() produced %d chunks, want 2", len(chunks))
	}

	// Both parts repeat the topic header and carry identical metadata.
	for i, chunk := range chunks {
		if !strings.HasPrefix(chunk.Text, "[Sector | Topic]\n") {
			t.Errorf("chunk %d missing repeated header: %q", i, chunk.Text)
		}
		meta := chunk.Metadata.(chunking.TaxonomyMetadata)
		if meta.Sector != "Sector" || meta.Topic != "Topic" {
			t.Errorf("chunk %d metadata = %+v", i, meta)
		}
	}
}

func TestStandardCodeTableResolve(t *testing.T) {
	table := chunking.NewStandardCodeTable(map[string]string{
		"sasb":    "SASB",
		"ifrs s2": "IFRS-S2",
	})

	tests := []struct {
		name     string
		document string
		want     string
	}{
		{name: "direct match", document: "SASB Standards 2023", want: "SASB"},
		{name: "case insensitive", document: "ifrs s2 climate", want: "IFRS-S2"},
		{name: "no match", document: "GRI Universal", want: chunking.UnknownStandardCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := table.Resolve(tt.document); got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}
