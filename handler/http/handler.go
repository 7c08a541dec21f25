package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"esgrag/src/core/corpus"
)

type Handler struct {
	ingestService corpus.IngestionService
	searchService corpus.SearchService
}

func NewHandler(ingestService corpus.IngestionService, searchService corpus.SearchService) *Handler {
	return &Handler{
		ingestService: ingestService,
		searchService: searchService,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")

	// Shared corpus routes
	api.POST("/corpora/:kind/ingest", h.IngestCorpus)
	api.DELETE("/corpora/:kind", h.DeleteCorpus)

	// Uploaded document routes
	api.POST("/documents/:id/ingest", h.IngestDocument)
	api.DELETE("/documents/:id", h.DeleteDocument)

	// Retrieval routes
	api.POST("/search", h.Search)
	api.GET("/paragraphs/:id", h.LookupParagraph)

	// System routes
	api.GET("/health", h.CheckHealth)
}

// Common error response structure
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func sendError(c *gin.Context, status int, err error) {
	var code string
	switch {
	case errors.Is(err, corpus.ErrUnknownCorpus):
		code = "UNKNOWN_CORPUS"
		status = http.StatusBadRequest
	case errors.Is(err, corpus.ErrNotSharedCorpus):
		code = "NOT_SHARED_CORPUS"
		status = http.StatusBadRequest
	case errors.Is(err, corpus.ErrNoCorpusSource):
		code = "NO_CORPUS_SOURCE"
		status = http.StatusNotFound
	case errors.Is(err, corpus.ErrChunkNotFound):
		code = "CHUNK_NOT_FOUND"
		status = http.StatusNotFound
	case status == http.StatusBadRequest:
		code = "BAD_REQUEST"
	default:
		code = "INTERNAL_ERROR"
		status = http.StatusInternalServerError
	}

	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}

func sendJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// CheckHealth godoc
// @Summary Check system health status
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) CheckHealth(c *gin.Context) {
	sendJSON(c, http.StatusOK, gin.H{"status": "ok"})
}
