package corpus_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"esgrag/src/core/chunking"
	"esgrag/src/core/corpus"
)

const standardSource = `# Governance

S2.5 An entity shall disclose information about its governance processes.

S2.6 The entity shall describe (a) the board's oversight and (b) management's role.
`

func newIngestFixture() (*fakeStore, *fakeEmbedder, *fakeFileStore, corpus.IngestionService) {
	store := &fakeStore{counts: map[chunking.CorpusKind]int{}}
	embedder := &fakeEmbedder{}
	fs := &fakeFileStore{files: map[string]string{
		filepath.Join("/data", "s2.md"): standardSource,
	}}
	svc := corpus.NewIngestionService(store, embedder, fs, "/data", corpus.SourceSet{
		chunking.KindRegulatoryPrimary: {Name: "IFRS S2", Path: "s2.md"},
	})
	return store, embedder, fs, svc
}

func TestIngestSharedCorpus(t *testing.T) {
	store, _, fs, svc := newIngestFixture()

	report, err := svc.IngestSharedCorpus(context.Background(), chunking.KindRegulatoryPrimary)
	if err != nil {
		t.Fatalf("IngestSharedCorpus() error = %v", err)
	}
	if report.Status != corpus.StatusCompleted {
		t.Errorf("status = %q, want completed", report.Status)
	}
	if report.ChunkCount != 2 {
		t.Errorf("chunk count = %d, want 2", report.ChunkCount)
	}
	if len(fs.reads) != 1 || fs.reads[0] != filepath.Join("/data", "s2.md") {
		t.Errorf("reads = %v, want the registered source path", fs.reads)
	}

	if len(store.inserted) != 1 {
		t.Fatalf("InsertBatch called %d times, want 1", len(store.inserted))
	}
	for i, record := range store.inserted[0] {
		if record.Kind != chunking.KindRegulatoryPrimary {
			t.Errorf("record %d kind = %q", i, record.Kind)
		}
		if record.Embedding == nil {
			t.Errorf("record %d has no embedding", i)
		}
		if record.Lexical == "" {
			t.Errorf("record %d has no lexical representation", i)
		}
		if record.OwnerDocumentID != "" {
			t.Errorf("record %d has owner %q, want none", i, record.OwnerDocumentID)
		}
	}
}

func TestIngestSharedCorpusAlreadyIngested(t *testing.T) {
	store, embedder, _, svc := newIngestFixture()
	store.counts[chunking.KindRegulatoryPrimary] = 7

	report, err := svc.IngestSharedCorpus(context.Background(), chunking.KindRegulatoryPrimary)
	if err != nil {
		t.Fatalf("IngestSharedCorpus() error = %v", err)
	}
	if report.Status != corpus.StatusAlreadyIngested {
		t.Errorf("status = %q, want already_ingested", report.Status)
	}
	if report.ChunkCount != 7 {
		t.Errorf("chunk count = %d, want the existing 7", report.ChunkCount)
	}
	if embedder.calls != 0 {
		t.Errorf("embedder called %d times, want 0", embedder.calls)
	}
	if len(store.inserted) != 0 {
		t.Errorf("InsertBatch called %d times, want 0", len(store.inserted))
	}
}

func TestIngestSharedCorpusValidation(t *testing.T) {
	_, _, _, svc := newIngestFixture()

	tests := []struct {
		name    string
		kind    chunking.CorpusKind
		wantErr error
	}{
		{name: "unknown kind", kind: "bogus", wantErr: corpus.ErrUnknownCorpus},
		{name: "document kind is not shared", kind: chunking.KindDocument, wantErr: corpus.ErrNotSharedCorpus},
		{name: "no registered source", kind: chunking.KindIndustryTaxonomy, wantErr: corpus.ErrNoCorpusSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.IngestSharedCorpus(context.Background(), tt.kind)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("IngestSharedCorpus() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIngestSharedCorpusEmbedFailure(t *testing.T) {
	store, embedder, _, svc := newIngestFixture()
	embedder.err = errors.New("provider down")

	_, err := svc.IngestSharedCorpus(context.Background(), chunking.KindRegulatoryPrimary)
	if err == nil {
		t.Fatal("IngestSharedCorpus() error = nil, want failure")
	}
	// Failed embedding must leave the store untouched.
	if len(store.inserted) != 0 {
		t.Errorf("InsertBatch called %d times after embed failure, want 0", len(store.inserted))
	}
}

func TestIngestDocumentReplacesExisting(t *testing.T) {
	store, _, _, svc := newIngestFixture()

	text := "# Overview\n\nAnnual report narrative long enough to form a chunk of text."
	count, err := svc.IngestDocument(context.Background(), "doc-1", text, nil)
	if err != nil {
		t.Fatalf("IngestDocument() error = %v", err)
	}
	if count != 1 {
		t.Errorf("chunk count = %d, want 1", count)
	}

	// Old chunks are removed before any new work happens.
	if len(store.deletedOwners) != 1 || store.deletedOwners[0] != "doc-1" {
		t.Errorf("deleted owners = %v, want [doc-1]", store.deletedOwners)
	}

	if len(store.inserted) != 1 {
		t.Fatalf("InsertBatch called %d times, want 1", len(store.inserted))
	}
	record := store.inserted[0][0]
	if record.Kind != chunking.KindDocument {
		t.Errorf("record kind = %q, want document", record.Kind)
	}
	if record.OwnerDocumentID != "doc-1" {
		t.Errorf("record owner = %q, want doc-1", record.OwnerDocumentID)
	}
}

func TestIngestDocumentIdempotent(t *testing.T) {
	store, _, _, svc := newIngestFixture()

	text := "# Overview\n\nAnnual report narrative long enough to form a chunk of text."
	first, err := svc.IngestDocument(context.Background(), "doc-1", text, nil)
	if err != nil {
		t.Fatalf("IngestDocument() error = %v", err)
	}
	second, err := svc.IngestDocument(context.Background(), "doc-1", text, nil)
	if err != nil {
		t.Fatalf("IngestDocument() second run error = %v", err)
	}

	if first != second {
		t.Errorf("chunk counts differ across runs: %d then %d", first, second)
	}
	if len(store.inserted) != 2 {
		t.Fatalf("InsertBatch called %d times, want 2", len(store.inserted))
	}
	// Same text in, same records out.
	if !reflect.DeepEqual(store.inserted[0], store.inserted[1]) {
		t.Errorf("records differ across runs:\nfirst  = %+v\nsecond = %+v", store.inserted[0], store.inserted[1])
	}
}

func TestIngestDocumentEmbedFailureLeavesDocumentEmpty(t *testing.T) {
	store, embedder, _, svc := newIngestFixture()

	text := "# Overview\n\nAnnual report narrative long enough to form a chunk of text."
	if _, err := svc.IngestDocument(context.Background(), "doc-1", text, nil); err != nil {
		t.Fatalf("IngestDocument() error = %v", err)
	}

	embedder.err = errors.New("provider down")
	if _, err := svc.IngestDocument(context.Background(), "doc-1", text, nil); err == nil {
		t.Fatal("IngestDocument() error = nil, want failure")
	}

	// The old chunks were removed up front and nothing replaced them, so
	// the document ends empty rather than holding a mix of generations.
	if len(store.deletedOwners) != 2 || store.deletedOwners[1] != "doc-1" {
		t.Errorf("deleted owners = %v, want doc-1 deleted on both runs", store.deletedOwners)
	}
	if len(store.inserted) != 1 {
		t.Errorf("InsertBatch called %d times, want only the first run's insert", len(store.inserted))
	}
}

func TestIngestDocumentRequiresID(t *testing.T) {
	_, _, _, svc := newIngestFixture()

	if _, err := svc.IngestDocument(context.Background(), "", "text", nil); err == nil {
		t.Error("IngestDocument() error = nil, want failure for empty id")
	}
}

func TestDeleteCorpus(t *testing.T) {
	store, _, _, svc := newIngestFixture()
	store.counts[chunking.KindRegulatoryPrimary] = 3

	deleted, err := svc.DeleteCorpus(context.Background(), chunking.KindRegulatoryPrimary)
	if err != nil {
		t.Fatalf("DeleteCorpus() error = %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}

	if _, err := svc.DeleteCorpus(context.Background(), "bogus"); !errors.Is(err, corpus.ErrUnknownCorpus) {
		t.Errorf("DeleteCorpus() error = %v, want ErrUnknownCorpus", err)
	}
}

func TestDeleteDocument(t *testing.T) {
	store, _, _, svc := newIngestFixture()

	if _, err := svc.DeleteDocument(context.Background(), "doc-9"); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}
	if len(store.deletedOwners) != 1 || store.deletedOwners[0] != "doc-9" {
		t.Errorf("deleted owners = %v, want [doc-9]", store.deletedOwners)
	}
}

func TestDeleteDocumentRequiresID(t *testing.T) {
	store, _, _, svc := newIngestFixture()

	if _, err := svc.DeleteDocument(context.Background(), ""); err == nil {
		t.Error("DeleteDocument() error = nil, want failure for empty id")
	}
	// An empty owner must never reach the store as an unfiltered delete.
	if len(store.deletedOwners) != 0 {
		t.Errorf("deleted owners = %v, want none", store.deletedOwners)
	}
}
