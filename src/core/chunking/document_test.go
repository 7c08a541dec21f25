package chunking_test

import (
	"reflect"
	"strings"
	"testing"

	"esgrag/src/core/chunking"
)

func TestDocumentChunkerSections(t *testing.T) {
	text := "# Introduction\n\nOpening paragraph about the report.\n\n# Emissions\n\n## Scope 1\n\nDirect emissions narrative.\n"
	chunker := chunking.NewDocumentChunker(chunking.WithDocumentTokenRange(1, 800))

	chunks := chunker.Chunk(text, nil)
	if len(chunks) != 2 {
		t.Fatalf("Chunk() produced %d chunks, want 2", len(chunks))
	}

	tests := []struct {
		name     string
		chunk    chunking.Chunk
		wantText string
		wantMeta chunking.DocumentMetadata
	}{
		{
			name:     "first section",
			chunk:    chunks[0],
			wantText: "[Introduction]\nOpening paragraph about the report.",
			wantMeta: chunking.DocumentMetadata{
				PageStart:   1,
				PageEnd:     1,
				SectionPath: []string{"Introduction"},
				ChunkIndex:  0,
			},
		},
		{
			name:     "nested section",
			chunk:    chunks[1],
			wantText: "[Emissions > Scope 1]\nDirect emissions narrative.",
			wantMeta: chunking.DocumentMetadata{
				PageStart:   1,
				PageEnd:     1,
				SectionPath: []string{"Emissions", "Scope 1"},
				ChunkIndex:  1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.chunk.Text != tt.wantText {
				t.Errorf("text = %q, want %q", tt.chunk.Text, tt.wantText)
			}
			got := tt.chunk.Metadata.(chunking.DocumentMetadata)
			if !reflect.DeepEqual(got, tt.wantMeta) {
				t.Errorf("metadata = %+v, want %+v", got, tt.wantMeta)
			}
		})
	}
}

func TestDocumentChunkerMergesUndersized(t *testing.T) {
	long := strings.Repeat("emissions narrative text ", 20) // 500 chars, 125 tokens
	text := "# Emissions\n\n" + long + "\n\n# Note\n\nShort remark.\n"

	chunker := chunking.NewDocumentChunker()
	chunks := chunker.Chunk(text, nil)
	if len(chunks) != 1 {
		t.Fatalf("Chunk() produced %d chunks, want 1", len(chunks))
	}
	if !strings.Contains(chunks[0].Text, "Short remark.") {
		t.Errorf("undersized section was not merged: %q", chunks[0].Text)
	}
	meta := chunks[0].Metadata.(chunking.DocumentMetadata)
	if !reflect.DeepEqual(meta.SectionPath, []string{"Emissions"}) {
		t.Errorf("section path = %v, want the absorbing section's path", meta.SectionPath)
	}
	if meta.ChunkIndex != 0 {
		t.Errorf("chunk index = %d, want 0", meta.ChunkIndex)
	}
}

func TestDocumentChunkerOverlappingWindows(t *testing.T) {
	blockA := strings.Repeat("a", 40)
	blockB := strings.Repeat("b", 40)
	blockC := strings.Repeat("c", 40)
	blockD := strings.Repeat("d", 40)
	text := blockA + "\n\n" + blockB + "\n\n" + blockC + "\n\n" + blockD

	chunker := chunking.NewDocumentChunker(
		chunking.WithDocumentTokenRange(1, 40),
		chunking.WithDocumentWindow(20, 10),
	)
	chunks := chunker.Chunk(text, nil)
	if len(chunks) != 3 {
		t.Fatalf("Chunk() produced %d chunks, want 3", len(chunks))
	}

	wantTexts := []string{
		"[Document]\n" + blockA + "\n\n" + blockB,
		"[Document]\n" + blockB + "\n\n" + blockC,
		"[Document]\n" + blockC + "\n\n" + blockD,
	}
	for i, want := range wantTexts {
		if chunks[i].Text != want {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i].Text, want)
		}
	}
}

func TestDocumentChunkerPageMapping(t *testing.T) {
	body := strings.Repeat("quarterly results discussion ", 4) // 116 chars
	pages := []chunking.PageBoundary{
		{Page: 1, StartOffset: 0},
		{Page: 2, StartOffset: 50},
	}

	chunker := chunking.NewDocumentChunker(chunking.WithDocumentTokenRange(1, 800))
	chunks := chunker.Chunk(body, pages)
	if len(chunks) != 1 {
		t.Fatalf("Chunk() produced %d chunks, want 1", len(chunks))
	}

	meta := chunks[0].Metadata.(chunking.DocumentMetadata)
	if meta.PageStart != 1 {
		t.Errorf("page start = %d, want 1", meta.PageStart)
	}
	if meta.PageEnd != 2 {
		t.Errorf("page end = %d, want 2", meta.PageEnd)
	}
}

func TestDocumentChunkerDetectsTables(t *testing.T) {
	text := "# Metrics\n\nIntro line.\n\n| Metric | Value |\n|---|---|\n| Scope 1 | 120 |\n"
	chunker := chunking.NewDocumentChunker(chunking.WithDocumentTokenRange(1, 800))

	chunks := chunker.Chunk(text, nil)
	if len(chunks) != 1 {
		t.Fatalf("Chunk() produced %d chunks, want 1", len(chunks))
	}
	meta := chunks[0].Metadata.(chunking.DocumentMetadata)
	if !meta.HasTable {
		t.Error("HasTable = false, want true")
	}
}

func TestDocumentChunkerEmptyInput(t *testing.T) {
	chunker := chunking.NewDocumentChunker()
	if chunks := chunker.Chunk("\n\n   \n", nil); len(chunks) != 0 {
		t.Errorf("Chunk() produced %d chunks, want 0", len(chunks))
	}
}
