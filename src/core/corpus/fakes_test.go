package corpus_test

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"esgrag/src/core/chunking"
	"esgrag/src/core/corpus"
)

// fakeStore is an in-test ChunkStore with canned query results and full
// call capture.
type fakeStore struct {
	semantic    []corpus.RankedChunk
	lexical     []corpus.RankedChunk
	semanticErr error
	lexicalErr  error

	counts      map[chunking.CorpusKind]int
	byParagraph map[string]corpus.ChunkRecord

	inserted      [][]corpus.ChunkRecord
	insertErr     error
	deletedKinds  []chunking.CorpusKind
	deletedOwners []string
}

func (f *fakeStore) InsertBatch(_ context.Context, records []corpus.ChunkRecord) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, records)
	return nil
}

func (f *fakeStore) DeleteByKind(_ context.Context, kind chunking.CorpusKind) (int, error) {
	f.deletedKinds = append(f.deletedKinds, kind)
	deleted := f.counts[kind]
	delete(f.counts, kind)
	return deleted, nil
}

func (f *fakeStore) DeleteByOwner(_ context.Context, documentID string) (int, error) {
	f.deletedOwners = append(f.deletedOwners, documentID)
	return 0, nil
}

func (f *fakeStore) CountByKind(_ context.Context, kind chunking.CorpusKind) (int, error) {
	return f.counts[kind], nil
}

func (f *fakeStore) QuerySemantic(_ context.Context, _ []float32, limit int, _ corpus.Filter) ([]corpus.RankedChunk, error) {
	if f.semanticErr != nil {
		return nil, f.semanticErr
	}
	return capResults(f.semantic, limit), nil
}

func (f *fakeStore) QueryLexical(_ context.Context, _ string, limit int, _ corpus.Filter) ([]corpus.RankedChunk, error) {
	if f.lexicalErr != nil {
		return nil, f.lexicalErr
	}
	return capResults(f.lexical, limit), nil
}

func (f *fakeStore) GetByParagraphID(_ context.Context, paragraphID string, _ corpus.Filter) (*corpus.ChunkRecord, error) {
	record, ok := f.byParagraph[paragraphID]
	if !ok {
		return nil, corpus.ErrChunkNotFound
	}
	return &record, nil
}

func capResults(results []corpus.RankedChunk, limit int) []corpus.RankedChunk {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}

// fakeEmbedder returns a one-dimensional vector per text, or a canned
// error.
type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeEmbedder) EmbedMany(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(i)}
	}
	return vectors, nil
}

// fakeFileStore serves corpus sources from a path-keyed map.
type fakeFileStore struct {
	files map[string]string
	reads []string
}

func (f *fakeFileStore) ReadFile(path string) ([]byte, error) {
	f.reads = append(f.reads, path)
	content, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", path)
	}
	return []byte(content), nil
}

func (f *fakeFileStore) ReadFileAsStream(path string) (io.ReadCloser, error) {
	content, err := f.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}
