package corpus_test

import (
	"context"
	"errors"
	"testing"

	"esgrag/src/core/chunking"
	"esgrag/src/core/corpus"
)

func rankedChunks(ids ...string) []corpus.RankedChunk {
	out := make([]corpus.RankedChunk, len(ids))
	for i, id := range ids {
		out[i] = corpus.RankedChunk{
			Record: corpus.ChunkRecord{
				ID:   id,
				Text: "text " + id,
				Kind: chunking.KindRegulatoryPrimary,
			},
			Score: 1.0 - float64(i)*0.1,
		}
	}
	return out
}

func TestSearchEmptyQuery(t *testing.T) {
	store := &fakeStore{}
	svc := corpus.NewSearchService(store, &fakeEmbedder{})

	results, err := svc.Search(context.Background(), corpus.SearchRequest{Query: "   "})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search() returned %d results, want 0", len(results))
	}
}

func TestSearchUnknownKindFilter(t *testing.T) {
	store := &fakeStore{semantic: rankedChunks("a")}
	svc := corpus.NewSearchService(store, &fakeEmbedder{})

	results, err := svc.Search(context.Background(), corpus.SearchRequest{
		Query: "emissions",
		Kinds: []chunking.CorpusKind{"no_such_corpus"},
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search() returned %d results, want 0 for unknown kind", len(results))
	}
}

func TestSearchHybridFusesEngines(t *testing.T) {
	store := &fakeStore{
		semantic: rankedChunks("a", "b"),
		lexical:  rankedChunks("b", "c"),
	}
	svc := corpus.NewSearchService(store, &fakeEmbedder{})

	results, err := svc.Search(context.Background(), corpus.SearchRequest{Query: "emissions targets"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	wantOrder := []string{"b", "a", "c"}
	if len(results) != len(wantOrder) {
		t.Fatalf("Search() returned %d results, want %d", len(results), len(wantOrder))
	}
	for i, want := range wantOrder {
		if results[i].ChunkID != want {
			t.Errorf("result %d = %q, want %q", i, results[i].ChunkID, want)
		}
		if results[i].Method != corpus.MethodHybrid {
			t.Errorf("result %d method = %q, want hybrid", i, results[i].Method)
		}
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("overlap chunk must score highest: %v vs %v", results[0].Score, results[1].Score)
	}
}

func TestSearchHybridTruncatesToTopK(t *testing.T) {
	store := &fakeStore{
		semantic: rankedChunks("a", "b", "c"),
		lexical:  rankedChunks("d", "e"),
	}
	svc := corpus.NewSearchService(store, &fakeEmbedder{})

	results, err := svc.Search(context.Background(), corpus.SearchRequest{
		Query: "emissions",
		TopK:  2,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Search() returned %d results, want 2", len(results))
	}
}

func TestSearchSemanticEmbedFailure(t *testing.T) {
	embedErr := errors.New("provider down")
	svc := corpus.NewSearchService(&fakeStore{}, &fakeEmbedder{err: embedErr})

	_, err := svc.Search(context.Background(), corpus.SearchRequest{
		Query: "emissions",
		Mode:  corpus.ModeSemantic,
	})
	if !errors.Is(err, embedErr) {
		t.Errorf("Search() error = %v, want wrapped %v", err, embedErr)
	}
}

func TestSearchHybridSubQueryFailure(t *testing.T) {
	storeErr := errors.New("index down")
	store := &fakeStore{
		semantic:   rankedChunks("a"),
		lexicalErr: storeErr,
	}
	svc := corpus.NewSearchService(store, &fakeEmbedder{})

	_, err := svc.Search(context.Background(), corpus.SearchRequest{Query: "emissions"})
	if !errors.Is(err, storeErr) {
		t.Errorf("Search() error = %v, want wrapped %v", err, storeErr)
	}
}

func TestSearchLexicalStopwordQuery(t *testing.T) {
	store := &fakeStore{lexical: rankedChunks("a")}
	svc := corpus.NewSearchService(store, &fakeEmbedder{})

	results, err := svc.Search(context.Background(), corpus.SearchRequest{
		Query: "of the and",
		Mode:  corpus.ModeLexical,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search() returned %d results for a stopword-only query, want 0", len(results))
	}
}

func TestSearchModes(t *testing.T) {
	store := &fakeStore{
		semantic: rankedChunks("a"),
		lexical:  rankedChunks("b"),
	}
	svc := corpus.NewSearchService(store, &fakeEmbedder{})

	tests := []struct {
		name       string
		mode       corpus.SearchMode
		wantID     string
		wantMethod corpus.SearchMethod
	}{
		{name: "semantic", mode: corpus.ModeSemantic, wantID: "a", wantMethod: corpus.MethodSemantic},
		{name: "lexical", mode: corpus.ModeLexical, wantID: "b", wantMethod: corpus.MethodLexical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := svc.Search(context.Background(), corpus.SearchRequest{
				Query: "emissions",
				Mode:  tt.mode,
			})
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if len(results) != 1 || results[0].ChunkID != tt.wantID {
				t.Fatalf("Search() results = %+v, want single %q", results, tt.wantID)
			}
			if results[0].Method != tt.wantMethod {
				t.Errorf("method = %q, want %q", results[0].Method, tt.wantMethod)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	store := &fakeStore{
		byParagraph: map[string]corpus.ChunkRecord{
			"S2.14": {ID: "chunk-1", Text: "requirement text", Kind: chunking.KindRegulatoryPrimary},
		},
	}
	svc := corpus.NewSearchService(store, &fakeEmbedder{})

	result, err := svc.Lookup(context.Background(), "S2.14", nil)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if result.ChunkID != "chunk-1" {
		t.Errorf("chunk id = %q, want chunk-1", result.ChunkID)
	}
	if result.Method != corpus.MethodPointLookup {
		t.Errorf("method = %q, want point_lookup", result.Method)
	}
	if result.Score != 1 {
		t.Errorf("score = %v, want 1", result.Score)
	}

	if _, err := svc.Lookup(context.Background(), "S2.99", nil); !errors.Is(err, corpus.ErrChunkNotFound) {
		t.Errorf("Lookup() error = %v, want ErrChunkNotFound", err)
	}
}
