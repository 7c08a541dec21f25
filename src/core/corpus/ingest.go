package corpus

import (
	"context"
	"fmt"
	"path/filepath"

	"esgrag/src/core/chunking"
	"esgrag/src/fsutil"
	"esgrag/src/log"
)

// IngestStatus reports the outcome of a shared-corpus ingestion.
type IngestStatus string

const (
	StatusCompleted       IngestStatus = "completed"
	StatusAlreadyIngested IngestStatus = "already_ingested"
)

// IngestReport is the result of a shared-corpus ingestion: the status and
// the number of chunks now stored for the corpus kind.
type IngestReport struct {
	Status     IngestStatus `json:"status"`
	ChunkCount int          `json:"chunkCount"`
}

// CorpusSource locates the packaged source text of a shared corpus and
// names the standard it carries (the name ends up in chunk headers and
// drives the taxonomy standard-code lookup).
type CorpusSource struct {
	Name string // e.g. "IFRS S2"
	Path string // file path relative to the data root
}

// SourceSet maps each shared corpus kind to its packaged source. It is
// built explicitly at startup and injected; there is no ambient registry.
type SourceSet map[chunking.CorpusKind]CorpusSource

// IngestionService orchestrates chunking, embedding and persistence for
// shared corpora and per-document content.
type IngestionService interface {
	// IngestSharedCorpus ingests the packaged source of a shared corpus
	// kind. Ingestion is once-only: a non-empty existing set reports
	// already_ingested with the existing count.
	IngestSharedCorpus(ctx context.Context, kind chunking.CorpusKind) (IngestReport, error)

	// IngestDocument replaces the chunks of a document with chunks cut
	// from the given text, returning the new chunk count. Existing chunks
	// are deleted before processing, so re-ingestion always starts clean.
	IngestDocument(ctx context.Context, documentID, text string, pages []chunking.PageBoundary) (int, error)

	// DeleteCorpus removes every chunk of the corpus kind.
	DeleteCorpus(ctx context.Context, kind chunking.CorpusKind) (int, error)

	// DeleteDocument removes every chunk owned by the document.
	DeleteDocument(ctx context.Context, documentID string) (int, error)
}

type ingestionService struct {
	store        ChunkStore
	embedder     Embedder
	fs           fsutil.FileStore
	dataRoot     string
	sources      SourceSet
	counterparts *chunking.CounterpartRegistry
	codes        *chunking.StandardCodeTable
	docChunker   *chunking.DocumentChunker
}

type IngestOption func(*ingestionService)

// WithCounterpartRegistry injects the cross-standard paragraph registry
// used by the regulatory chunkers.
func WithCounterpartRegistry(r *chunking.CounterpartRegistry) IngestOption {
	return func(s *ingestionService) {
		s.counterparts = r
	}
}

// WithStandardCodeTable injects the taxonomy standard-code table.
func WithStandardCodeTable(t *chunking.StandardCodeTable) IngestOption {
	return func(s *ingestionService) {
		s.codes = t
	}
}

// WithDocumentChunker overrides the document chunker configuration.
func WithDocumentChunker(c *chunking.DocumentChunker) IngestOption {
	return func(s *ingestionService) {
		s.docChunker = c
	}
}

// NewIngestionService creates the ingestion manager. Shared-corpus source
// files are read through fs below dataRoot as described by sources.
func NewIngestionService(store ChunkStore, embedder Embedder, fs fsutil.FileStore, dataRoot string, sources SourceSet, opts ...IngestOption) IngestionService {
	s := &ingestionService{
		store:      store,
		embedder:   embedder,
		fs:         fs,
		dataRoot:   dataRoot,
		sources:    sources,
		docChunker: chunking.NewDocumentChunker(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ingestionService) IngestSharedCorpus(ctx context.Context, kind chunking.CorpusKind) (IngestReport, error) {
	if !kind.Valid() {
		return IngestReport{}, fmt.Errorf("%w: %q", ErrUnknownCorpus, kind)
	}
	if !kind.Shared() {
		return IngestReport{}, fmt.Errorf("%w: %q", ErrNotSharedCorpus, kind)
	}

	existing, err := s.store.CountByKind(ctx, kind)
	if err != nil {
		return IngestReport{}, fmt.Errorf("failed to count existing chunks: %w", err)
	}
	if existing > 0 {
		log.Info("shared corpus already ingested", "kind", string(kind), "chunks", existing)
		return IngestReport{Status: StatusAlreadyIngested, ChunkCount: existing}, nil
	}

	source, ok := s.sources[kind]
	if !ok {
		return IngestReport{}, fmt.Errorf("%w: %q", ErrNoCorpusSource, kind)
	}
	raw, err := s.fs.ReadFile(filepath.Join(s.dataRoot, source.Path))
	if err != nil {
		return IngestReport{}, fmt.Errorf("failed to read corpus source %q: %w", source.Path, err)
	}

	chunks := s.chunkShared(kind, source, string(raw))
	count, err := s.persist(ctx, kind, "", chunks)
	if err != nil {
		return IngestReport{}, err
	}

	log.Info("shared corpus ingested", "kind", string(kind), "chunks", count)
	return IngestReport{Status: StatusCompleted, ChunkCount: count}, nil
}

func (s *ingestionService) chunkShared(kind chunking.CorpusKind, source CorpusSource, text string) []chunking.Chunk {
	switch kind {
	case chunking.KindIndustryTaxonomy:
		chunker := chunking.NewTaxonomyChunker(source.Name, chunking.WithStandardCodes(s.codes))
		return chunker.Chunk(text)
	default:
		chunker := chunking.NewRegulatoryChunker(source.Name, chunking.WithCounterparts(s.counterparts))
		return chunker.Chunk(text)
	}
}

func (s *ingestionService) IngestDocument(ctx context.Context, documentID, text string, pages []chunking.PageBoundary) (int, error) {
	if documentID == "" {
		return 0, fmt.Errorf("document id is required")
	}

	// Re-ingestion always starts from zero for the document. The delete
	// runs before embedding so a failed run can never leave a mix of old
	// and new chunks behind.
	deleted, err := s.store.DeleteByOwner(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete existing document chunks: %w", err)
	}
	if deleted > 0 {
		log.Info("replaced existing document chunks", "document", documentID, "deleted", deleted)
	}

	chunks := s.docChunker.Chunk(text, pages)
	count, err := s.persist(ctx, chunking.KindDocument, documentID, chunks)
	if err != nil {
		return 0, err
	}

	log.Info("document ingested", "document", documentID, "chunks", count)
	return count, nil
}

// persist embeds every chunk text and writes the full batch only when
// embedding succeeded in full. Nothing reaches the store on failure, so a
// retry is always safe.
func (s *ingestionService) persist(ctx context.Context, kind chunking.CorpusKind, ownerDocumentID string, chunks []chunking.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.EmbedMany(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}

	records := make([]ChunkRecord, len(chunks))
	for i, c := range chunks {
		records[i] = ChunkRecord{
			Text:            c.Text,
			Kind:            kind,
			Metadata:        c.Metadata,
			Embedding:       vectors[i],
			Lexical:         DeriveLexical(c.Text),
			OwnerDocumentID: ownerDocumentID,
		}
	}
	if err := s.store.InsertBatch(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to persist chunks: %w", err)
	}
	return len(records), nil
}

func (s *ingestionService) DeleteCorpus(ctx context.Context, kind chunking.CorpusKind) (int, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCorpus, kind)
	}
	deleted, err := s.store.DeleteByKind(ctx, kind)
	if err != nil {
		return 0, fmt.Errorf("failed to delete corpus %q: %w", kind, err)
	}
	log.Info("corpus deleted", "kind", string(kind), "chunks", deleted)
	return deleted, nil
}

func (s *ingestionService) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	if documentID == "" {
		return 0, fmt.Errorf("document id is required")
	}
	deleted, err := s.store.DeleteByOwner(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete document %q chunks: %w", documentID, err)
	}
	log.Info("document chunks deleted", "document", documentID, "chunks", deleted)
	return deleted, nil
}
