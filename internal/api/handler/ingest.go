package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/facefinder/internal/domain"
	"github.com/timmy/facefinder/internal/repository"
	"github.com/timmy/facefinder/internal/service"
)

// ClientIDHeader tags published candidates with the caller's identity.
const ClientIDHeader = "Client-Id"

// IngestHandler accepts candidate lists from the crawler.
type IngestHandler struct {
	publisher *service.Publisher
	intake    *service.IntakeService
	store     repository.FaceStore
}

// NewIngestHandler creates a new ingest handler. A nil publisher disables the
// queued endpoint and a nil intake disables the direct one.
func NewIngestHandler(publisher *service.Publisher, intake *service.IntakeService, store repository.FaceStore) *IngestHandler {
	return &IngestHandler{publisher: publisher, intake: intake, store: store}
}

// Enqueue handles POST /api/v1/ingest.
// Candidates are queued in batches; the response is 200 once every batch was attempted.
func (h *IngestHandler) Enqueue(c *gin.Context) {
	if h.publisher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue is not configured"})
		return
	}
	candidates, ok := bindCandidates(c)
	if !ok {
		return
	}

	report := h.publisher.Publish(c.Request.Context(), candidates, c.GetHeader(ClientIDHeader))

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"batch_id": report.BatchID,
		"batches":  report.Batches,
		"queued":   report.Sent,
		"failed":   report.Failed,
	})
}

// IngestDirect handles POST /api/v1/ingest/direct.
// Candidates run through the intake pipeline before the response is written.
func (h *IngestHandler) IngestDirect(c *gin.Context) {
	if h.intake == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "direct ingest is not configured"})
		return
	}
	candidates, ok := bindCandidates(c)
	if !ok {
		return
	}
	if clientID := c.GetHeader(ClientIDHeader); clientID != "" {
		for i := range candidates {
			candidates[i].ClientID = clientID
		}
	}

	_, stats, _ := h.intake.ProcessBatch(c.Request.Context(), h.store, candidates)

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"total":         stats.Total,
		"indexed":       stats.Indexed,
		"already_known": stats.AlreadyKnown,
		"skipped":       stats.Excluded + stats.Rejected + stats.NoFace,
		"failed":        stats.Failed,
	})
}

func bindCandidates(c *gin.Context) ([]domain.Candidate, bool) {
	var candidates []domain.Candidate
	if err := c.ShouldBindJSON(&candidates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return nil, false
	}
	return candidates, true
}
