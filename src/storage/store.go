package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"esgrag/src/core/chunking"
	"esgrag/src/core/corpus"
	"esgrag/src/log"
	"esgrag/src/storage/elastic"
	"esgrag/src/storage/weaviate"
)

// Store keeps every chunk in two indexes under the same id: Weaviate for
// vector similarity and Elasticsearch for lexical relevance. Fusion later
// deduplicates by that shared id. Elasticsearch is the second write target
// and therefore authoritative for counts, lookups and delete totals.
type Store struct {
	vectors *weaviate.SDK
	lexical *elastic.SDK
}

func NewStore(vectors *weaviate.SDK, lexical *elastic.SDK) *Store {
	return &Store{
		vectors: vectors,
		lexical: lexical,
	}
}

// EnsureReady creates the Weaviate class and the Elasticsearch index when
// either is missing.
func (s *Store) EnsureReady(ctx context.Context) error {
	if err := s.vectors.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to prepare vector index: %w", err)
	}
	if err := s.lexical.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("failed to prepare lexical index: %w", err)
	}
	return nil
}

// InsertBatch writes the records to both indexes. Ids and creation times
// are assigned here. When the lexical write fails after the vector write
// succeeded, the just-written vectors are deleted again so a retry starts
// from a clean slate.
func (s *Store) InsertBatch(ctx context.Context, records []corpus.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	objects := make([]weaviate.VectorObject, len(records))
	docs := make([]elastic.Document, len(records))
	ids := make([]string, len(records))

	for i := range records {
		records[i].ID = uuid.NewString()
		records[i].CreatedAt = now
		ids[i] = records[i].ID

		metadata, err := chunking.EncodeMetadata(records[i].Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata for chunk %d: %w", i, err)
		}

		objects[i] = weaviate.VectorObject{
			ID:     records[i].ID,
			Vector: records[i].Embedding,
			Properties: map[string]interface{}{
				"text":            records[i].Text,
				"corpusKind":      string(records[i].Kind),
				"ownerDocumentId": records[i].OwnerDocumentID,
				"metadata":        string(metadata),
				"createdAt":       now.Format(time.RFC3339),
			},
		}
		docs[i] = elastic.Document{
			ID:              records[i].ID,
			Text:            records[i].Text,
			Lexical:         records[i].Lexical,
			CorpusKind:      string(records[i].Kind),
			OwnerDocumentID: records[i].OwnerDocumentID,
			ParagraphID:     paragraphID(records[i].Metadata),
			Metadata:        metadata,
			CreatedAt:       now,
		}
	}

	if err := s.vectors.BatchAddVectors(ctx, objects); err != nil {
		return fmt.Errorf("failed to write vector index: %w", err)
	}
	if err := s.lexical.BulkAdd(ctx, docs); err != nil {
		if rollbackErr := s.vectors.DeleteVectors(ctx, ids); rollbackErr != nil {
			log.Error(rollbackErr, "failed to roll back vector writes after lexical failure", "chunks", len(ids))
		}
		return fmt.Errorf("failed to write lexical index: %w", err)
	}
	return nil
}

func paragraphID(m chunking.Metadata) string {
	if rm, ok := m.(chunking.RegulatoryMetadata); ok {
		return rm.ParagraphID
	}
	return ""
}

// DeleteByKind removes the whole corpus from both indexes. The lexical
// count is returned: it is the second write target, so it never holds
// chunks the vector index is missing.
func (s *Store) DeleteByKind(ctx context.Context, kind chunking.CorpusKind) (int, error) {
	kinds := []string{string(kind)}
	if _, err := s.vectors.DeleteWhere(ctx, weaviate.WhereKindAndOwner(kinds, "")); err != nil {
		return 0, fmt.Errorf("failed to delete from vector index: %w", err)
	}
	deleted, err := s.lexical.DeleteWhere(ctx, kinds, "")
	if err != nil {
		return 0, fmt.Errorf("failed to delete from lexical index: %w", err)
	}
	return deleted, nil
}

// DeleteByOwner removes every chunk of one uploaded document from both
// indexes.
func (s *Store) DeleteByOwner(ctx context.Context, documentID string) (int, error) {
	if documentID == "" {
		// An empty owner would build an unfiltered delete.
		return 0, fmt.Errorf("refusing to delete without a document id")
	}
	if _, err := s.vectors.DeleteWhere(ctx, weaviate.WhereKindAndOwner(nil, documentID)); err != nil {
		return 0, fmt.Errorf("failed to delete from vector index: %w", err)
	}
	deleted, err := s.lexical.DeleteWhere(ctx, nil, documentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete from lexical index: %w", err)
	}
	return deleted, nil
}

// CountByKind reports the lexical-index count, which is authoritative.
// The vector index is counted as well and a divergence between the two is
// logged so a failed rollback surfaces instead of rotting silently.
func (s *Store) CountByKind(ctx context.Context, kind chunking.CorpusKind) (int, error) {
	kinds := []string{string(kind)}
	count, err := s.lexical.Count(ctx, kinds)
	if err != nil {
		return 0, err
	}
	vectorCount, err := s.vectors.CountWhere(ctx, weaviate.WhereKindAndOwner(kinds, ""))
	if err != nil {
		log.Error(err, "vector index count failed", "kind", string(kind))
		return count, nil
	}
	if vectorCount != count {
		log.Info("index chunk counts diverge", "kind", string(kind), "vectors", vectorCount, "lexical", count)
	}
	return count, nil
}

// QuerySemantic ranks chunks by cosine similarity. Weaviate reports
// certainty in [0,1]; cosine similarity is recovered as 2*certainty-1.
func (s *Store) QuerySemantic(ctx context.Context, vector []float32, limit int, filter corpus.Filter) ([]corpus.RankedChunk, error) {
	where := weaviate.WhereKindAndOwner(kindStrings(filter.Kinds), filter.OwnerDocumentID)
	results, err := s.vectors.QueryNearVector(ctx, vector, limit, where)
	if err != nil {
		return nil, fmt.Errorf("semantic query failed: %w", err)
	}

	ranked := make([]corpus.RankedChunk, 0, len(results))
	for _, r := range results {
		record, err := recordFromProperties(r.ID, r.Properties)
		if err != nil {
			log.Error(err, "skipping malformed vector result", "id", r.ID)
			continue
		}
		ranked = append(ranked, corpus.RankedChunk{
			Record: record,
			Score:  2*r.Certainty - 1,
		})
	}
	return ranked, nil
}

// QueryLexical ranks chunks by BM25 relevance of the derived terms.
func (s *Store) QueryLexical(ctx context.Context, terms string, limit int, filter corpus.Filter) ([]corpus.RankedChunk, error) {
	hits, err := s.lexical.Search(ctx, terms, limit, kindStrings(filter.Kinds), filter.OwnerDocumentID)
	if err != nil {
		return nil, fmt.Errorf("lexical query failed: %w", err)
	}

	ranked := make([]corpus.RankedChunk, 0, len(hits))
	for _, h := range hits {
		record, err := recordFromDocument(h.ID, h.Document)
		if err != nil {
			log.Error(err, "skipping malformed lexical result", "id", h.ID)
			continue
		}
		ranked = append(ranked, corpus.RankedChunk{Record: record, Score: h.Score})
	}
	return ranked, nil
}

func (s *Store) GetByParagraphID(ctx context.Context, paragraphID string, filter corpus.Filter) (*corpus.ChunkRecord, error) {
	hit, err := s.lexical.GetByParagraphID(ctx, paragraphID, kindStrings(filter.Kinds))
	if err != nil {
		return nil, fmt.Errorf("paragraph lookup failed: %w", err)
	}
	if hit == nil {
		return nil, corpus.ErrChunkNotFound
	}
	record, err := recordFromDocument(hit.ID, hit.Document)
	if err != nil {
		return nil, fmt.Errorf("paragraph lookup returned malformed chunk %s: %w", hit.ID, err)
	}
	return &record, nil
}

func kindStrings(kinds []chunking.CorpusKind) []string {
	if len(kinds) == 0 {
		return nil
	}
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

func recordFromDocument(id string, doc elastic.Document) (corpus.ChunkRecord, error) {
	kind := chunking.CorpusKind(doc.CorpusKind)
	metadata, err := chunking.DecodeMetadata(kind, doc.Metadata)
	if err != nil {
		return corpus.ChunkRecord{}, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return corpus.ChunkRecord{
		ID:              id,
		Text:            doc.Text,
		Kind:            kind,
		Metadata:        metadata,
		Lexical:         doc.Lexical,
		OwnerDocumentID: doc.OwnerDocumentID,
		CreatedAt:       doc.CreatedAt,
	}, nil
}

func recordFromProperties(id string, props map[string]interface{}) (corpus.ChunkRecord, error) {
	record := corpus.ChunkRecord{ID: id}
	if text, ok := props["text"].(string); ok {
		record.Text = text
	}
	if kind, ok := props["corpusKind"].(string); ok {
		record.Kind = chunking.CorpusKind(kind)
	}
	if owner, ok := props["ownerDocumentId"].(string); ok {
		record.OwnerDocumentID = owner
	}
	if createdAt, ok := props["createdAt"].(string); ok {
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			record.CreatedAt = t
		}
	}

	raw, _ := props["metadata"].(string)
	metadata, err := chunking.DecodeMetadata(record.Kind, []byte(raw))
	if err != nil {
		return corpus.ChunkRecord{}, fmt.Errorf("failed to decode metadata: %w", err)
	}
	record.Metadata = metadata
	return record, nil
}
