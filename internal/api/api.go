package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"csgo-liquidity/internal/export"
	"csgo-liquidity/internal/liquidity"
	"csgo-liquidity/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type APIHandler struct {
	db    *gorm.DB
	store *liquidity.Store
	hub   *Hub
}

func SetupRoutes(r *gin.RouterGroup, db *gorm.DB, store *liquidity.Store, hub *Hub) *APIHandler {
	handler := &APIHandler{
		db:    db,
		store: store,
		hub:   hub,
	}

	liq := r.Group("/liquidity")
	{
		liq.GET("", handler.ListScores)
		liq.GET("/item", handler.GetScore)
		liq.GET("/dopplers", handler.ListDopplers)
		liq.GET("/stats", handler.GetStats)
		liq.POST("/refresh", handler.TriggerRefresh)
		liq.GET("/export", handler.ExportScores)
	}

	return handler
}

// scoreResponse attaches the read-time composite score to a record.
type scoreResponse struct {
	liquidity.ScoredRecord
	LiquidityScore int `json:"liquidity_score"`
}

func toResponse(records []liquidity.ScoredRecord) []scoreResponse {
	out := make([]scoreResponse, len(records))
	for i, rec := range records {
		out[i] = scoreResponse{ScoredRecord: rec, LiquidityScore: rec.LiquidityScore()}
	}
	return out
}

// ListScores returns scored records from the current snapshot.
// GET /api/v1/liquidity?min_score=60&limit=100
func (h *APIHandler) ListScores(c *gin.Context) {
	snap := h.store.Snapshot()

	minScore := 0
	if s := c.Query("min_score"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_score must be an integer in [0,100]"})
			return
		}
		minScore = n
	}
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	// An empty result must serialize as [], not null.
	results := make([]scoreResponse, 0)
	for _, rec := range snap.All() {
		score := rec.LiquidityScore()
		if score < minScore {
			continue
		}
		results = append(results, scoreResponse{ScoredRecord: rec, LiquidityScore: score})
		if limit > 0 && len(results) >= limit {
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"built_at": snap.BuiltAt(),
		"total":    len(results),
		"items":    results,
	})
}

// GetScore returns one scored record by item key.
// GET /api/v1/liquidity/item?key=AK-47%20|%20Redline|FT
func (h *APIHandler) GetScore(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}

	rec, ok := h.store.Snapshot().Lookup(key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}
	c.JSON(http.StatusOK, scoreResponse{ScoredRecord: rec, LiquidityScore: rec.LiquidityScore()})
}

// ListDopplers returns the Doppler-flagged records.
// GET /api/v1/liquidity/dopplers
func (h *APIHandler) ListDopplers(c *gin.Context) {
	snap := h.store.Snapshot()
	items := toResponse(snap.Dopplers())
	c.JSON(http.StatusOK, gin.H{
		"built_at": snap.BuiltAt(),
		"total":    len(items),
		"items":    items,
	})
}

// GetStats reports snapshot-level counters.
// GET /api/v1/liquidity/stats
func (h *APIHandler) GetStats(c *gin.Context) {
	snap := h.store.Snapshot()

	buckets := map[string]int{}
	for _, rec := range snap.All() {
		switch score := rec.LiquidityScore(); {
		case score >= 80:
			buckets["high"]++
		case score >= 50:
			buckets["medium"]++
		default:
			buckets["low"]++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"built_at":   snap.BuiltAt(),
		"items":      snap.Len(),
		"dopplers":   len(snap.Dopplers()),
		"buckets":    buckets,
		"refreshing": h.store.Refreshing(),
	})
}

// TriggerRefresh rebuilds the snapshot from the market_data table. A
// refresh already in flight yields 409; the caller can simply retry later
// and pick up that run's result.
// POST /api/v1/liquidity/refresh
func (h *APIHandler) TriggerRefresh(c *gin.Context) {
	startedAt := time.Now().UTC()
	stats, err := h.store.Refresh(c.Request.Context())
	if err != nil {
		if errors.Is(err, liquidity.ErrRefreshInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		log.Printf("liquidity refresh failed: %v", err)
		h.auditRefresh(startedAt, stats, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	log.Printf("liquidity refresh done: %d rows scored in %v", stats.ScoredRows, stats.Duration)
	h.auditRefresh(startedAt, stats, nil)
	h.hub.Broadcast("refresh_completed", stats)
	c.JSON(http.StatusOK, stats)
}

func (h *APIHandler) auditRefresh(startedAt time.Time, stats liquidity.RefreshStats, refreshErr error) {
	entry := models.RefreshLog{
		StartedAt:  startedAt,
		Duration:   time.Since(startedAt).Milliseconds(),
		SourceRows: stats.SourceRows,
		ScoredRows: stats.ScoredRows,
		Success:    refreshErr == nil,
	}
	if refreshErr != nil {
		entry.Error = refreshErr.Error()
	}
	if err := h.db.Create(&entry).Error; err != nil {
		log.Printf("failed to write refresh log: %v", err)
	}
}

// ExportScores streams the snapshot as an XLSX workbook.
// GET /api/v1/liquidity/export
func (h *APIHandler) ExportScores(c *gin.Context) {
	f, err := export.SnapshotWorkbook(h.store.Snapshot())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="liquidity_scores.xlsx"`)
	if err := f.Write(c.Writer); err != nil {
		log.Printf("failed to stream xlsx export: %v", err)
	}
}
