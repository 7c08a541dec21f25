package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"esgrag/src/core/chunking"
)

// IngestCorpus godoc
// @Summary Ingest the packaged source of a shared corpus
// @Tags corpora
// @Produce json
// @Param kind path string true "Corpus kind"
// @Success 200 {object} corpus.IngestReport
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /corpora/{kind}/ingest [post]
func (h *Handler) IngestCorpus(c *gin.Context) {
	kind, err := chunking.ParseCorpusKind(c.Param("kind"))
	if err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	report, err := h.ingestService.IngestSharedCorpus(c.Request.Context(), kind)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, report)
}

// DeleteCorpus godoc
// @Summary Delete every chunk of a shared corpus
// @Tags corpora
// @Produce json
// @Param kind path string true "Corpus kind"
// @Success 200 {object} deleteResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /corpora/{kind} [delete]
func (h *Handler) DeleteCorpus(c *gin.Context) {
	kind, err := chunking.ParseCorpusKind(c.Param("kind"))
	if err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	deleted, err := h.ingestService.DeleteCorpus(c.Request.Context(), kind)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, deleteResponse{Deleted: deleted})
}

type ingestDocumentRequest struct {
	Text  string `json:"text" binding:"required"`
	Pages []struct {
		Page        int `json:"page"`
		StartOffset int `json:"startOffset"`
	} `json:"pages"`
}

type ingestDocumentResponse struct {
	DocumentID string `json:"documentId"`
	ChunkCount int    `json:"chunkCount"`
}

type deleteResponse struct {
	Deleted int `json:"deleted"`
}

// IngestDocument godoc
// @Summary Ingest extracted text as chunks of an uploaded document
// @Tags documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param body body ingestDocumentRequest true "Extracted document text with optional page boundaries"
// @Success 200 {object} ingestDocumentResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /documents/{id}/ingest [post]
func (h *Handler) IngestDocument(c *gin.Context) {
	var req ingestDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	id := c.Param("id")

	pages := make([]chunking.PageBoundary, len(req.Pages))
	for i, p := range req.Pages {
		pages[i] = chunking.PageBoundary{Page: p.Page, StartOffset: p.StartOffset}
	}

	count, err := h.ingestService.IngestDocument(c.Request.Context(), id, req.Text, pages)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, ingestDocumentResponse{DocumentID: id, ChunkCount: count})
}

// DeleteDocument godoc
// @Summary Delete every chunk owned by an uploaded document
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} deleteResponse
// @Failure 500 {object} ErrorResponse
// @Router /documents/{id} [delete]
func (h *Handler) DeleteDocument(c *gin.Context) {
	id := c.Param("id")

	deleted, err := h.ingestService.DeleteDocument(c.Request.Context(), id)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, deleteResponse{Deleted: deleted})
}
