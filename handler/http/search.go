package http

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"esgrag/src/core/chunking"
	"esgrag/src/core/corpus"
)

type searchRequest struct {
	Query           string   `json:"query" binding:"required"`
	TopK            int      `json:"topK"`
	Mode            string   `json:"mode"` // semantic, lexical or hybrid
	Kinds           []string `json:"kinds"`
	OwnerDocumentID string   `json:"ownerDocumentId"`
	RRFK            int      `json:"rrfK"`
}

type searchResult struct {
	ChunkID         string          `json:"chunkId"`
	Text            string          `json:"text"`
	Kind            string          `json:"kind"`
	Metadata        json.RawMessage `json:"metadata"`
	OwnerDocumentID string          `json:"ownerDocumentId,omitempty"`
	Score           float64         `json:"score"`
	Method          string          `json:"method"`
}

func toSearchResults(results []corpus.SearchResult) ([]searchResult, error) {
	out := make([]searchResult, len(results))
	for i, r := range results {
		metadata, err := chunking.EncodeMetadata(r.Metadata)
		if err != nil {
			return nil, err
		}
		out[i] = searchResult{
			ChunkID:         r.ChunkID,
			Text:            r.Text,
			Kind:            string(r.Kind),
			Metadata:        metadata,
			OwnerDocumentID: r.OwnerDocumentID,
			Score:           r.Score,
			Method:          string(r.Method),
		}
	}
	return out, nil
}

// Search godoc
// @Summary Run a ranked retrieval query across corpora
// @Tags search
// @Accept json
// @Produce json
// @Param body body searchRequest true "Search parameters"
// @Success 200 {array} searchResult
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /search [post]
func (h *Handler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	// Kinds are passed through unvalidated: a filter naming a corpus that
	// does not exist cannot match anything, so the search answers with an
	// empty result set rather than an error.
	kinds := make([]chunking.CorpusKind, 0, len(req.Kinds))
	for _, raw := range req.Kinds {
		kinds = append(kinds, chunking.CorpusKind(raw))
	}

	results, err := h.searchService.Search(c.Request.Context(), corpus.SearchRequest{
		Query:           req.Query,
		TopK:            req.TopK,
		Mode:            corpus.SearchMode(req.Mode),
		Kinds:           kinds,
		OwnerDocumentID: req.OwnerDocumentID,
		RRFK:            req.RRFK,
	})
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	body, err := toSearchResults(results)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, body)
}

// LookupParagraph godoc
// @Summary Fetch a regulatory chunk by its paragraph identifier
// @Tags search
// @Produce json
// @Param id path string true "Paragraph identifier, e.g. S2.14(a)"
// @Success 200 {object} searchResult
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /paragraphs/{id} [get]
func (h *Handler) LookupParagraph(c *gin.Context) {
	result, err := h.searchService.Lookup(c.Request.Context(), c.Param("id"), nil)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	body, err := toSearchResults([]corpus.SearchResult{*result})
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, body[0])
}
