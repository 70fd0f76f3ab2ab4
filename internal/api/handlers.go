package api

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"propstack/server/config"
	"propstack/server/internal/consolidation"
	"propstack/server/internal/engine"
	"propstack/server/internal/geometry"
	"propstack/server/internal/models"
	"propstack/server/internal/queue"
)

type Handler struct {
	engine     *engine.Engine
	areas      *config.AreaStore
	dedupQueue *queue.ListingQueue
	logger     *logrus.Logger
}

type PolygonRequest struct {
	Vertices [][2]float64 `json:"vertices"`
	AreaName string       `json:"area_name"`
}

type DetectRequest struct {
	ListingIDs []string `json:"listing_ids"`
	AreaID     string   `json:"area_id"`
	Strategy   string   `json:"strategy" binding:"required"`
}

type MergeRequest struct {
	Items     []consolidation.MergeItem `json:"items" binding:"required"`
	AddressID string                    `json:"address_id"`
}

type SplitRequest struct {
	ObjectIDs []string `json:"object_ids" binding:"required"`
}

type EvaluateRequest struct {
	ObjectID   string `json:"object_id" binding:"required"`
	Evaluation string `json:"evaluation" binding:"required"`
}

func NewHandler(eng *engine.Engine, areas *config.AreaStore, dedupQueue *queue.ListingQueue, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Handler{engine: eng, areas: areas, dedupQueue: dedupQueue, logger: logger}
}

// IngestListings stores a scraped batch and queues it for duplicate
// detection.
func (h *Handler) IngestListings(c *gin.Context) {
	var listings []*models.Listing
	if err := c.ShouldBindJSON(&listings); err != nil || len(listings) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listings payload"})
		return
	}

	if err := h.engine.AddListings(c.Request.Context(), listings); err != nil {
		h.respondError(c, err)
		return
	}

	if h.dedupQueue != nil {
		if err := h.dedupQueue.Push(listings); err != nil {
			h.logger.WithError(err).Warn("Listings stored but not queued for dedup")
		}
	}
	c.JSON(http.StatusAccepted, gin.H{"ingested": len(listings)})
}

// respondError maps the engine's error kinds onto HTTP statuses.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// FindListingsInPolygon returns listings inside an ad-hoc polygon or a
// saved search area.
func (h *Handler) FindListingsInPolygon(c *gin.Context) {
	var req PolygonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid polygon request"})
		return
	}

	vertices := req.Vertices
	if len(vertices) == 0 && req.AreaName != "" {
		area := h.areas.GetAreaByName(req.AreaName)
		if area == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown search area"})
			return
		}
		vertices = area.Vertices
	}
	if len(vertices) < 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "polygon needs at least 3 vertices"})
		return
	}

	listings, err := h.engine.FindListingsInPolygon(geometry.RingFromLatLng(vertices))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listings)
}

// RefreshIndex rebuilds the listing spatial index. Queries issued before
// this returns see the previous index, never a half-built one.
func (h *Handler) RefreshIndex(c *gin.Context) {
	if err := h.engine.RefreshListingIndex(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rebuilt"})
}

// DetectDuplicates runs a detector strategy over the listings currently
// inside a saved area.
func (h *Handler) DetectDuplicates(c *gin.Context) {
	var req DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid detect request"})
		return
	}

	listings, err := h.listingsForDetection(c, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.engine.DetectDuplicates(c.Request.Context(), listings, req.AreaID, req.Strategy)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) listingsForDetection(c *gin.Context, req *DetectRequest) ([]*models.Listing, error) {
	if req.AreaID != "" {
		area := h.areas.GetAreaByName(req.AreaID)
		if area == nil {
			return nil, models.NotFoundError("search areas", req.AreaID)
		}
		return h.engine.FindListingsInPolygon(geometry.RingFromLatLng(area.Vertices))
	}

	listings := make([]*models.Listing, 0, len(req.ListingIDs))
	for _, id := range req.ListingIDs {
		record, err := h.engine.Listing(c.Request.Context(), id)
		if err != nil {
			return nil, err
		}
		listings = append(listings, record)
	}
	return listings, nil
}

// MergeObjects consolidates a selection of listings and objects.
func (h *Handler) MergeObjects(c *gin.Context) {
	var req MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid merge request"})
		return
	}

	object, err := h.engine.MergeIntoObject(c.Request.Context(), req.Items, req.AddressID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, object)
}

// SplitObjects splits objects back into independent listings.
func (h *Handler) SplitObjects(c *gin.Context) {
	var req SplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid split request"})
		return
	}

	result, err := h.engine.SplitObjectsToListings(c.Request.Context(), req.ObjectIDs)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// PriceAtDate returns an object's reconstructed price as of ?date= (RFC
// 3339 or date-only), defaulting to now.
func (h *Handler) PriceAtDate(c *gin.Context) {
	objectID := c.Param("id")

	date := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			parsed, err = time.Parse("2006-01-02", raw)
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
			return
		}
		date = parsed
	}

	price, err := h.engine.PriceAtDate(c.Request.Context(), objectID, date)
	if err != nil {
		h.respondError(c, err)
		return
	}
	pricePerMeter, err := h.engine.PricePerMeterAtDate(c.Request.Context(), objectID, date)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"object_id":       objectID,
		"date":            date,
		"price":           price,
		"price_per_meter": pricePerMeter,
	})
}

// StartSession begins a fresh evaluation session over the object catalog.
func (h *Handler) StartSession(c *gin.Context) {
	if err := h.engine.StartSession(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

// Evaluate records a judgment for one object.
func (h *Handler) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid evaluation request"})
		return
	}

	if err := h.engine.Evaluate(req.ObjectID, models.EvaluationKind(req.Evaluation)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

// GetCorridors returns the session's active/archive/optimal corridors,
// running the overpriced contradiction check first so the response reflects
// the reclassified evaluations.
func (h *Handler) GetCorridors(c *gin.Context) {
	reclassified, err := h.engine.AutoDetectOverpriced()
	if err != nil {
		h.respondError(c, err)
		return
	}

	corridors, err := h.engine.Corridors()
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"corridors":    corridors,
		"reclassified": reclassified,
	})
}

// GetConfidence returns the session's confidence score.
func (h *Handler) GetConfidence(c *gin.Context) {
	confidence, err := h.engine.Confidence()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, confidence)
}

// GetEvaluations returns the session's evaluations in persisted form.
func (h *Handler) GetEvaluations(c *gin.Context) {
	entries, err := h.engine.Evaluations()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// RestoreEvaluations loads previously persisted evaluations into the
// session.
func (h *Handler) RestoreEvaluations(c *gin.Context) {
	var entries []models.EvaluationEntry
	if err := c.ShouldBindJSON(&entries); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid evaluations payload"})
		return
	}

	if err := h.engine.RestoreEvaluations(entries); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "restored"})
}

// GetAreas lists the saved search areas.
func (h *Handler) GetAreas(c *gin.Context) {
	c.JSON(http.StatusOK, h.areas.GetAreas())
}

// SaveArea creates or replaces a saved search area.
func (h *Handler) SaveArea(c *gin.Context) {
	var area config.SearchArea
	if err := c.ShouldBindJSON(&area); err != nil || area.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid search area"})
		return
	}

	if err := h.areas.UpdateArea(area); err != nil {
		h.logger.WithError(err).Error("Failed to save search area")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save search area"})
		return
	}
	c.JSON(http.StatusOK, area)
}
