package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/facefinder/internal/domain"
	"github.com/timmy/facefinder/internal/logger"
	"github.com/timmy/facefinder/internal/service"
)

// SearchRequest is the body of POST /api/v1/search.
type SearchRequest struct {
	ImageURL string `json:"image-url" binding:"required"`
}

// SearchHandler handles reverse image search endpoints.
type SearchHandler struct {
	searchService *service.SearchService
	maxBytes      int64
}

// NewSearchHandler creates a new search handler.
// Parameters:
//   - searchService: search service instance.
//   - maxBytes: largest accepted uploaded image.
//
// Returns:
//   - *SearchHandler: initialized handler.
func NewSearchHandler(searchService *service.SearchService, maxBytes int64) *SearchHandler {
	return &SearchHandler{searchService: searchService, maxBytes: maxBytes}
}

// SearchByURL handles POST /api/v1/search.
// No match is answered with 200 and an empty array.
func (h *SearchHandler) SearchByURL(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	ctx := logger.WithField(c.Request.Context(), logger.FieldImageURL, req.ImageURL)
	sources, err := h.searchService.SearchByURL(ctx, req.ImageURL)
	if err != nil {
		writeSearchError(c, err)
		return
	}
	c.JSON(http.StatusOK, sources)
}

// SearchByImage handles POST /api/v1/search/image with the raw image as body.
func (h *SearchHandler) SearchByImage(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": domain.ErrImageTooLarge.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body: " + err.Error()})
		return
	}

	sources, err := h.searchService.SearchByImage(c.Request.Context(), body)
	if err != nil {
		writeSearchError(c, err)
		return
	}
	c.JSON(http.StatusOK, sources)
}

func writeSearchError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnsupportedFormat), errors.Is(err, domain.ErrImageTooLarge):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrFetchFailed):
		status = http.StatusBadGateway
	default:
		logger.FromContext(c.Request.Context()).WithError(err).Error("Search failed")
	}
	c.JSON(status, gin.H{"error": "Search failed: " + err.Error()})
}
