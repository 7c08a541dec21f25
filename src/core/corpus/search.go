package corpus

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"esgrag/src/core/chunking"
	"esgrag/src/log"
)

const DefaultTopK = 10

// SearchMode selects the retrieval strategy for a query.
type SearchMode string

const (
	ModeSemantic SearchMode = "semantic"
	ModeLexical  SearchMode = "lexical"
	ModeHybrid   SearchMode = "hybrid"
)

// SearchMethod reports which engine produced a result, for observability.
type SearchMethod string

const (
	MethodSemantic    SearchMethod = "semantic"
	MethodLexical     SearchMethod = "lexical"
	MethodHybrid      SearchMethod = "hybrid"
	MethodPointLookup SearchMethod = "point_lookup"
)

// SearchRequest is a ranked retrieval request.
type SearchRequest struct {
	Query           string
	TopK            int
	Mode            SearchMode
	Kinds           []chunking.CorpusKind
	OwnerDocumentID string
	RRFK            int
}

// SearchResult is one ranked chunk with its citation metadata.
type SearchResult struct {
	ChunkID         string
	Text            string
	Kind            chunking.CorpusKind
	Metadata        chunking.Metadata
	OwnerDocumentID string
	Score           float64
	Method          SearchMethod
}

// SearchService serves hybrid ranked retrieval over the chunk store.
type SearchService interface {
	// Search runs a ranked query in the requested mode (hybrid when
	// unset).
	Search(ctx context.Context, req SearchRequest) ([]SearchResult, error)

	// Lookup resolves a chunk by structured paragraph identifier,
	// bypassing ranking. Returns ErrChunkNotFound when absent.
	Lookup(ctx context.Context, paragraphID string, kinds []chunking.CorpusKind) (*SearchResult, error)
}

type searchService struct {
	store    ChunkStore
	embedder Embedder
}

// NewSearchService creates the search service over the given store and
// embedder.
func NewSearchService(store ChunkStore, embedder Embedder) SearchService {
	return &searchService{
		store:    store,
		embedder: embedder,
	}
}

func (s *searchService) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return []SearchResult{}, nil
	}
	if req.TopK <= 0 {
		req.TopK = DefaultTopK
	}
	if req.Mode == "" {
		req.Mode = ModeHybrid
	}

	// An unknown corpus kind cannot match any stored chunk; the safe
	// answer is an empty result set, not a guess at what was meant.
	for _, kind := range req.Kinds {
		if !kind.Valid() {
			log.Info("search filter references unknown corpus kind", "kind", string(kind))
			return []SearchResult{}, nil
		}
	}
	filter := Filter{Kinds: req.Kinds, OwnerDocumentID: req.OwnerDocumentID}

	switch req.Mode {
	case ModeSemantic:
		return s.searchSemantic(ctx, req, filter)
	case ModeLexical:
		return s.searchLexical(ctx, req, filter)
	case ModeHybrid:
		return s.searchHybrid(ctx, req, filter)
	}
	return nil, fmt.Errorf("unknown search mode %q", req.Mode)
}

func (s *searchService) searchSemantic(ctx context.Context, req SearchRequest, filter Filter) ([]SearchResult, error) {
	ranked, err := s.querySemantic(ctx, req.Query, req.TopK, filter)
	if err != nil {
		return nil, err
	}
	return toResults(ranked, MethodSemantic, req.TopK), nil
}

func (s *searchService) searchLexical(ctx context.Context, req SearchRequest, filter Filter) ([]SearchResult, error) {
	ranked, err := s.queryLexical(ctx, req.Query, req.TopK, filter)
	if err != nil {
		return nil, err
	}
	return toResults(ranked, MethodLexical, req.TopK), nil
}

// searchHybrid runs the semantic and lexical sub-queries concurrently at
// twice the requested depth and merges them with reciprocal rank fusion.
// A failing sub-query fails the whole search: silently downgrading to a
// single engine would change retrieval semantics under the caller.
func (s *searchService) searchHybrid(ctx context.Context, req SearchRequest, filter Filter) ([]SearchResult, error) {
	fetchLimit := req.TopK * 2

	var semantic, lexical []RankedChunk
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		semantic, err = s.querySemantic(gctx, req.Query, fetchLimit, filter)
		return err
	})
	g.Go(func() error {
		var err error
		lexical, err = s.queryLexical(gctx, req.Query, fetchLimit, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rrfK := req.RRFK
	if rrfK <= 0 {
		rrfK = DefaultRRFK
	}
	fused := fuseRRF(semantic, lexical, rrfK)

	results := make([]SearchResult, 0, req.TopK)
	for _, f := range fused {
		if len(results) == req.TopK {
			break
		}
		results = append(results, toResult(f.record, f.score, MethodHybrid))
	}
	return results, nil
}

func (s *searchService) querySemantic(ctx context.Context, query string, limit int, filter Filter) ([]RankedChunk, error) {
	vector, err := s.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	ranked, err := s.store.QuerySemantic(ctx, vector, limit, filter)
	if err != nil {
		return nil, fmt.Errorf("semantic query failed: %w", err)
	}
	return ranked, nil
}

func (s *searchService) queryLexical(ctx context.Context, query string, limit int, filter Filter) ([]RankedChunk, error) {
	terms := DeriveLexical(query)
	if terms == "" {
		return nil, nil
	}
	ranked, err := s.store.QueryLexical(ctx, terms, limit, filter)
	if err != nil {
		return nil, fmt.Errorf("lexical query failed: %w", err)
	}
	return ranked, nil
}

func (s *searchService) Lookup(ctx context.Context, paragraphID string, kinds []chunking.CorpusKind) (*SearchResult, error) {
	for _, kind := range kinds {
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCorpus, kind)
		}
	}
	record, err := s.store.GetByParagraphID(ctx, paragraphID, Filter{Kinds: kinds})
	if err != nil {
		return nil, err
	}
	result := toResult(*record, 1, MethodPointLookup)
	return &result, nil
}

func toResults(ranked []RankedChunk, method SearchMethod, topK int) []SearchResult {
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	results := make([]SearchResult, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, toResult(r.Record, r.Score, method))
	}
	return results
}

func toResult(record ChunkRecord, score float64, method SearchMethod) SearchResult {
	return SearchResult{
		ChunkID:         record.ID,
		Text:            record.Text,
		Kind:            record.Kind,
		Metadata:        record.Metadata,
		OwnerDocumentID: record.OwnerDocumentID,
		Score:           score,
		Method:          method,
	}
}
