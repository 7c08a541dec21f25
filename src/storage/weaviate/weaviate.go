package weaviate

import (
	"context"
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// ClassName is the single Weaviate class holding every corpus chunk.
const ClassName = "CorpusChunk"

const DefaultQueryLimit = 20

// SDK encapsulates the Weaviate operations the chunk store needs
type SDK struct {
	client *weaviate.Client
}

// NewSDK creates a new instance of SDK
func NewSDK(client *weaviate.Client) *SDK {
	return &SDK{
		client: client,
	}
}

// EnsureSchema creates the chunk class when it does not exist yet. The
// class is vectorizer-free: vectors always arrive from the embedding
// client.
func (w *SDK) EnsureSchema(ctx context.Context) error {
	exists, err := w.classExists(ctx, ClassName)
	if err != nil {
		return fmt.Errorf("failed to check if class exists: %v", err)
	}
	if exists {
		return nil
	}

	properties := []*models.Property{
		{
			Name:        "text",
			DataType:    []string{"text"},
			Description: "Chunk body including its context header",
		},
		{
			Name:        "corpusKind",
			DataType:    []string{"text"},
			Description: "Corpus kind the chunk belongs to",
		},
		{
			Name:        "ownerDocumentId",
			DataType:    []string{"text"},
			Description: "Owning document for document-kind chunks",
		},
		{
			Name:        "metadata",
			DataType:    []string{"text"},
			Description: "Per-kind chunk metadata, JSON encoded",
		},
		{
			Name:        "createdAt",
			DataType:    []string{"date"},
			Description: "Chunk creation time",
		},
	}

	class := &models.Class{
		Class:      ClassName,
		Properties: properties,
		Vectorizer: "none",
	}
	if err := w.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("failed to create Weaviate class: %v", err)
	}
	return nil
}

// classExists checks if a class exists in the schema
func (w *SDK) classExists(ctx context.Context, className string) (bool, error) {
	schema, err := w.client.Schema().Getter().Do(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get schema: %v", err)
	}

	for _, class := range schema.Classes {
		if class.Class == className {
			return true, nil
		}
	}

	return false, nil
}

// VectorObject represents a single chunk with its vector, explicit id and
// properties
type VectorObject struct {
	ID         string
	Vector     []float32
	Properties map[string]interface{}
}

// BatchAddVectors adds multiple chunk objects in a single batch operation
func (w *SDK) BatchAddVectors(ctx context.Context, objects []VectorObject) error {
	objs := make([]*models.Object, len(objects))
	for i, obj := range objects {
		objs[i] = &models.Object{
			ID:         strfmt.UUID(obj.ID),
			Class:      ClassName,
			Properties: obj.Properties,
			Vector:     obj.Vector,
		}
	}

	batcher := w.client.Batch().ObjectsBatcher()
	resp, err := batcher.WithObjects(objs...).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to batch add vectors: %v", err)
	}
	if len(resp) == 0 {
		return fmt.Errorf("batch operation returned no results")
	}
	for _, r := range resp {
		if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			return fmt.Errorf("batch add failed for object %s: %s", r.ID, r.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// WhereKindAndOwner builds the filter for an optional corpus-kind set and
// an optional owning document. Returns nil when nothing is filtered.
func WhereKindAndOwner(kinds []string, ownerDocumentID string) *filters.WhereBuilder {
	var operands []*filters.WhereBuilder

	if len(kinds) == 1 {
		operands = append(operands, filters.Where().
			WithPath([]string{"corpusKind"}).
			WithOperator(filters.Equal).
			WithValueText(kinds[0]))
	} else if len(kinds) > 1 {
		kindOperands := make([]*filters.WhereBuilder, len(kinds))
		for i, kind := range kinds {
			kindOperands[i] = filters.Where().
				WithPath([]string{"corpusKind"}).
				WithOperator(filters.Equal).
				WithValueText(kind)
		}
		operands = append(operands, filters.Where().
			WithOperator(filters.Or).
			WithOperands(kindOperands))
	}

	if ownerDocumentID != "" {
		operands = append(operands, filters.Where().
			WithPath([]string{"ownerDocumentId"}).
			WithOperator(filters.Equal).
			WithValueText(ownerDocumentID))
	}

	switch len(operands) {
	case 0:
		return nil
	case 1:
		return operands[0]
	default:
		return filters.Where().
			WithOperator(filters.And).
			WithOperands(operands)
	}
}

// QueryResult represents a single result from vector similarity search
type QueryResult struct {
	ID         string
	Certainty  float64
	Properties map[string]interface{}
}

// QueryNearVector ranks chunks by vector similarity, optionally filtered.
func (w *SDK) QueryNearVector(ctx context.Context, vector []float32, limit int, where *filters.WhereBuilder) ([]QueryResult, error) {
	fields := []graphql.Field{
		{Name: "text"},
		{Name: "corpusKind"},
		{Name: "ownerDocumentId"},
		{Name: "metadata"},
		{Name: "createdAt"},
		{Name: "_additional { id certainty }"},
	}

	nearVector := w.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	query := w.client.GraphQL().Get().
		WithClassName(ClassName).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(limit)
	if where != nil {
		query = query.WithWhere(where)
	}

	result, err := query.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %v", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("failed to query vectors: %v", result.Errors[0].Message)
	}

	var queryResults []QueryResult
	if data, ok := result.Data["Get"].(map[string]interface{}); ok {
		if objects, ok := data[ClassName].([]interface{}); ok {
			for _, obj := range objects {
				objMap, ok := obj.(map[string]interface{})
				if !ok {
					continue
				}
				additional, ok := objMap["_additional"].(map[string]interface{})
				if !ok {
					continue
				}

				properties := make(map[string]interface{})
				for k, v := range objMap {
					if k != "_additional" {
						properties[k] = v
					}
				}

				qr := QueryResult{Properties: properties}
				if id, ok := additional["id"].(string); ok {
					qr.ID = id
				}
				if certainty, ok := additional["certainty"].(float64); ok {
					qr.Certainty = certainty
				}
				queryResults = append(queryResults, qr)
			}
		}
	}

	return queryResults, nil
}

// DeleteWhere removes every chunk matching the filter and returns the
// number deleted.
func (w *SDK) DeleteWhere(ctx context.Context, where *filters.WhereBuilder) (int, error) {
	resp, err := w.client.Batch().ObjectsBatchDeleter().
		WithClassName(ClassName).
		WithWhere(where).
		WithOutput("minimal").
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to batch delete vectors: %v", err)
	}
	if resp == nil || resp.Results == nil {
		return 0, nil
	}
	return int(resp.Results.Successful), nil
}

// DeleteVectors removes chunks by their explicit ids. Used to roll back a
// half-written batch.
func (w *SDK) DeleteVectors(ctx context.Context, ids []string) error {
	for _, id := range ids {
		err := w.client.Data().Deleter().
			WithClassName(ClassName).
			WithID(id).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete vector %s: %v", id, err)
		}
	}
	return nil
}

// CountWhere returns the number of chunks matching the filter.
func (w *SDK) CountWhere(ctx context.Context, where *filters.WhereBuilder) (int, error) {
	meta := graphql.Field{
		Name:   "meta",
		Fields: []graphql.Field{{Name: "count"}},
	}

	query := w.client.GraphQL().Aggregate().
		WithClassName(ClassName).
		WithFields(meta)
	if where != nil {
		query = query.WithWhere(where)
	}

	result, err := query.Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate count: %v", err)
	}
	if len(result.Errors) > 0 {
		return 0, fmt.Errorf("failed to aggregate count: %v", result.Errors[0].Message)
	}

	if data, ok := result.Data["Aggregate"].(map[string]interface{}); ok {
		if objects, ok := data[ClassName].([]interface{}); ok && len(objects) > 0 {
			if objMap, ok := objects[0].(map[string]interface{}); ok {
				if meta, ok := objMap["meta"].(map[string]interface{}); ok {
					if count, ok := meta["count"].(float64); ok {
						return int(count), nil
					}
				}
			}
		}
	}
	return 0, nil
}
