package corpus

import (
	"context"
	"errors"
	"time"

	"esgrag/src/core/chunking"
)

var (
	ErrNotSharedCorpus = errors.New("corpus kind is not a shared corpus")
	ErrUnknownCorpus   = errors.New("unknown corpus kind")
	ErrNoCorpusSource  = errors.New("no source registered for corpus kind")
	ErrChunkNotFound   = errors.New("chunk not found")
)

// ChunkRecord is the stored unit of retrieval: chunk text with its context
// header, the per-kind metadata variant, the embedding vector, and the
// derived lexical representation used for keyword scoring.
type ChunkRecord struct {
	ID              string
	Text            string
	Kind            chunking.CorpusKind
	Metadata        chunking.Metadata
	Embedding       []float32
	Lexical         string
	OwnerDocumentID string // set only for document-kind chunks
	CreatedAt       time.Time
}

// RankedChunk is a chunk record paired with the score a single retrieval
// engine assigned to it.
type RankedChunk struct {
	Record ChunkRecord
	Score  float64
}

// Filter narrows a store query to corpus kinds and optionally to a single
// owning document.
type Filter struct {
	Kinds           []chunking.CorpusKind
	OwnerDocumentID string
}

// ChunkStore is the durable index chunks are written to and queried from.
// Writes are append-only and deletes are by group; rows are never updated
// in place.
type ChunkStore interface {
	// InsertBatch persists a group of chunk records. IDs and creation
	// timestamps are assigned by the store at write time.
	InsertBatch(ctx context.Context, records []ChunkRecord) error

	// DeleteByKind removes every chunk of the corpus kind and returns the
	// number removed.
	DeleteByKind(ctx context.Context, kind chunking.CorpusKind) (int, error)

	// DeleteByOwner removes every chunk owned by the document and returns
	// the number removed.
	DeleteByOwner(ctx context.Context, documentID string) (int, error)

	// CountByKind returns the number of chunks stored for the corpus kind.
	CountByKind(ctx context.Context, kind chunking.CorpusKind) (int, error)

	// QuerySemantic ranks stored chunks by cosine similarity to the vector.
	QuerySemantic(ctx context.Context, vector []float32, limit int, filter Filter) ([]RankedChunk, error)

	// QueryLexical ranks stored chunks by lexical relevance to the derived
	// query terms.
	QueryLexical(ctx context.Context, terms string, limit int, filter Filter) ([]RankedChunk, error)

	// GetByParagraphID fetches a regulatory chunk by its structured
	// paragraph identifier. Returns ErrChunkNotFound when absent.
	GetByParagraphID(ctx context.Context, paragraphID string, filter Filter) (*ChunkRecord, error)
}

// Embedder turns chunk or query text into fixed-dimension vectors. Output
// order matches input order exactly.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}
