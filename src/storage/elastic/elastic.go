package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// IndexName is the single index holding the lexical representation of
// every corpus chunk.
const IndexName = "corpus-chunks"

const DefaultQueryLimit = 20

// indexMapping defines the lexical index. The lexical field is analyzed
// with the standard analyzer only: stemming and stopword removal already
// happened when the value was derived, identically for documents and
// queries.
const indexMapping = `{
  "mappings": {
    "properties": {
      "text":            { "type": "text", "index": false },
      "lexical":         { "type": "text", "analyzer": "standard" },
      "corpusKind":      { "type": "keyword" },
      "ownerDocumentId": { "type": "keyword" },
      "paragraphId":     { "type": "keyword" },
      "metadata":        { "type": "object", "enabled": false },
      "createdAt":       { "type": "date" }
    }
  }
}`

// Document is a chunk as stored in the lexical index.
type Document struct {
	ID              string          `json:"-"`
	Text            string          `json:"text"`
	Lexical         string          `json:"lexical"`
	CorpusKind      string          `json:"corpusKind"`
	OwnerDocumentID string          `json:"ownerDocumentId,omitempty"`
	ParagraphID     string          `json:"paragraphId,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Hit is a scored document returned by a lexical query.
type Hit struct {
	ID       string
	Score    float64
	Document Document
}

// SDK encapsulates the Elasticsearch operations the chunk store needs
type SDK struct {
	client *elasticsearch.Client
}

// NewSDK creates a new instance of SDK
func NewSDK(client *elasticsearch.Client) *SDK {
	return &SDK{
		client: client,
	}
}

// EnsureIndex creates the chunk index when it does not exist yet.
func (e *SDK) EnsureIndex(ctx context.Context) error {
	resp, err := e.client.Indices.Exists(
		[]string{IndexName},
		e.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == 200 {
		return nil
	}

	createResp, err := e.client.Indices.Create(
		IndexName,
		e.client.Indices.Create.WithContext(ctx),
		e.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createResp.Body.Close()
	if createResp.IsError() {
		return fmt.Errorf("failed to create index: %s", createResp.String())
	}
	return nil
}

// BulkAdd indexes a group of documents in one bulk request. The refresh
// makes them visible to searches and counts immediately; ingestion
// correctness (the already-ingested check) depends on that.
func (e *SDK) BulkAdd(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, doc := range docs {
		action := fmt.Sprintf(`{"index":{"_id":%q}}`, doc.ID)
		buf.WriteString(action)
		buf.WriteByte('\n')
		line, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal document %s: %w", doc.ID, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	resp, err := e.client.Bulk(
		&buf,
		e.client.Bulk.WithContext(ctx),
		e.client.Bulk.WithIndex(IndexName),
		e.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("bulk index request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return fmt.Errorf("bulk index request failed: %s", resp.String())
	}

	var result struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Error *struct {
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if result.Errors {
		for _, item := range result.Items {
			for _, op := range item {
				if op.Error != nil {
					return fmt.Errorf("bulk index rejected a document: %s", op.Error.Reason)
				}
			}
		}
		return fmt.Errorf("bulk index reported errors")
	}
	return nil
}

// filterClauses builds the bool-filter side of a query for an optional
// corpus-kind set and an optional owning document.
func filterClauses(kinds []string, ownerDocumentID string) []map[string]interface{} {
	var clauses []map[string]interface{}
	if len(kinds) > 0 {
		clauses = append(clauses, map[string]interface{}{
			"terms": map[string]interface{}{"corpusKind": kinds},
		})
	}
	if ownerDocumentID != "" {
		clauses = append(clauses, map[string]interface{}{
			"term": map[string]interface{}{"ownerDocumentId": ownerDocumentID},
		})
	}
	return clauses
}

// Search ranks chunks by BM25 relevance of the derived query terms.
func (e *SDK) Search(ctx context.Context, terms string, limit int, kinds []string, ownerDocumentID string) ([]Hit, error) {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	query := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"match": map[string]interface{}{"lexical": terms},
				},
				"filter": filterClauses(kinds, ownerDocumentID),
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	resp, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(IndexName),
		e.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == 404 {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("search request failed: %s", resp.String())
	}

	var result struct {
		Hits struct {
			Hits []struct {
				ID     string          `json:"_id"`
				Score  float64         `json:"_score"`
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	hits := make([]Hit, 0, len(result.Hits.Hits))
	for _, h := range result.Hits.Hits {
		var doc Document
		if err := json.Unmarshal(h.Source, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", h.ID, err)
		}
		doc.ID = h.ID
		hits = append(hits, Hit{ID: h.ID, Score: h.Score, Document: doc})
	}
	return hits, nil
}

// GetByParagraphID fetches a single chunk by its paragraph identifier.
// Returns nil when no chunk matches.
func (e *SDK) GetByParagraphID(ctx context.Context, paragraphID string, kinds []string) (*Hit, error) {
	filter := append(filterClauses(kinds, ""), map[string]interface{}{
		"term": map[string]interface{}{"paragraphId": paragraphID},
	})
	query := map[string]interface{}{
		"size": 1,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filter},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lookup query: %w", err)
	}

	resp, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(IndexName),
		e.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("lookup request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == 404 {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("lookup request failed: %s", resp.String())
	}

	var result struct {
		Hits struct {
			Hits []struct {
				ID     string          `json:"_id"`
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode lookup response: %w", err)
	}
	if len(result.Hits.Hits) == 0 {
		return nil, nil
	}

	h := result.Hits.Hits[0]
	var doc Document
	if err := json.Unmarshal(h.Source, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", h.ID, err)
	}
	doc.ID = h.ID
	return &Hit{ID: h.ID, Score: 1, Document: doc}, nil
}

// DeleteWhere removes every chunk matching the kind/owner filter and
// returns the number deleted.
func (e *SDK) DeleteWhere(ctx context.Context, kinds []string, ownerDocumentID string) (int, error) {
	clauses := filterClauses(kinds, ownerDocumentID)
	if len(clauses) == 0 {
		return 0, fmt.Errorf("refusing to delete without a filter")
	}
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": clauses},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal delete query: %w", err)
	}

	resp, err := e.client.DeleteByQuery(
		[]string{IndexName},
		bytes.NewReader(body),
		e.client.DeleteByQuery.WithContext(ctx),
		e.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return 0, fmt.Errorf("delete by query failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == 404 {
		return 0, nil
	}
	if resp.IsError() {
		return 0, fmt.Errorf("delete by query failed: %s", resp.String())
	}

	var result struct {
		Deleted int `json:"deleted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode delete response: %w", err)
	}
	return result.Deleted, nil
}

// Count returns the number of chunks matching the kind filter. A missing
// index counts as empty.
func (e *SDK) Count(ctx context.Context, kinds []string) (int, error) {
	opts := []func(*esapi.CountRequest){
		e.client.Count.WithContext(ctx),
		e.client.Count.WithIndex(IndexName),
	}
	if clauses := filterClauses(kinds, ""); len(clauses) > 0 {
		query := map[string]interface{}{
			"query": map[string]interface{}{
				"bool": map[string]interface{}{"filter": clauses},
			},
		}
		body, err := json.Marshal(query)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal count query: %w", err)
		}
		opts = append(opts, e.client.Count.WithBody(bytes.NewReader(body)))
	}

	resp, err := e.client.Count(opts...)
	if err != nil {
		return 0, fmt.Errorf("count request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == 404 {
		return 0, nil
	}
	if resp.IsError() {
		return 0, fmt.Errorf("count request failed: %s", resp.String())
	}

	var result struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode count response: %w", err)
	}
	return result.Count, nil
}
