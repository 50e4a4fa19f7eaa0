// Package httpapi serves recommendations as a JSON gallery over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bookrec/internal/caption"
	"bookrec/internal/catalog"
	"bookrec/internal/export"
	"bookrec/internal/service"
)

// MaxLimit caps the number of books a single request may ask for.
const MaxLimit = 50

// Retriever is the engine contract the handlers depend on.
type Retriever interface {
	Retrieve(ctx context.Context, q service.Query) (service.Result, error)
}

// Handler contains all HTTP handlers
type Handler struct {
	engine     Retriever
	categories []string
	defaults   service.Query
	logger     *slog.Logger
}

// Item is one gallery tile.
type Item struct {
	ISBN           int64  `json:"isbn"`
	Title          string `json:"title"`
	Authors        string `json:"authors"`
	Category       string `json:"category,omitempty"`
	LargeThumbnail string `json:"large_thumbnail"`
	Caption        string `json:"caption"`
	GoodreadsURL   string `json:"goodreads_url"`
}

// Gallery is the response body of a recommendation request.
type Gallery struct {
	Status     service.Status `json:"status"`
	Degraded   bool           `json:"degraded"`
	Notice     string         `json:"notice,omitempty"`
	Candidates int            `json:"candidates"`
	Items      []Item         `json:"items"`
}

// NewHandler creates a new handler instance. categories are the catalog's
// distinct categories; defaults supply the candidate pool and result limit.
func NewHandler(engine Retriever, categories []string, defaults service.Query, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		engine:     engine,
		categories: append([]string{catalog.All}, categories...),
		defaults:   defaults,
		logger:     logger.With("component", "httpapi"),
	}
}

// NewRouter wires the handlers onto a gin engine.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", h.Health)
	api := r.Group("/api")
	{
		api.GET("/categories", h.Categories)
		api.GET("/tones", h.Tones)
		api.GET("/recommendations", h.Recommendations)
		api.GET("/recommendations.csv", h.RecommendationsCSV)
	}
	return r
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.categories})
}

func (h *Handler) Tones(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tones": append([]string{catalog.All}, catalog.Tones...)})
}

// Recommendations returns (large_thumbnail, caption) tiles for ?q=.
func (h *Handler) Recommendations(c *gin.Context) {
	res, ok := h.retrieve(c)
	if !ok {
		return
	}
	items := make([]Item, len(res.Books))
	for i, b := range res.Books {
		items[i] = Item{
			ISBN:           b.ISBN,
			Title:          b.Title,
			Authors:        b.Authors,
			Category:       b.Category,
			LargeThumbnail: b.LargeThumbnail,
			Caption:        caption.Caption(b),
			GoodreadsURL:   caption.GoodreadsURL(b.Title),
		}
	}
	c.JSON(http.StatusOK, Gallery{
		Status:     res.Status,
		Degraded:   res.Degraded,
		Notice:     res.Notice,
		Candidates: res.Candidates,
		Items:      items,
	})
}

// RecommendationsCSV returns the same books as a CSV download.
func (h *Handler) RecommendationsCSV(c *gin.Context) {
	res, ok := h.retrieve(c)
	if !ok {
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.DefaultFilename+`"`)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := export.WriteCSV(c.Writer, res.Books); err != nil {
		h.logger.Error("write csv", "err", err)
	}
}

func (h *Handler) retrieve(c *gin.Context) (service.Result, bool) {
	q := h.defaults
	q.Text = c.Query("q")
	q.Category = c.Query("category")
	q.Tone = c.Query("tone")
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > MaxLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and " + strconv.Itoa(MaxLimit)})
			return service.Result{}, false
		}
		q.ResultLimit = limit
	}

	res, err := h.engine.Retrieve(c.Request.Context(), q)
	if err != nil {
		h.logger.Error("retrieve failed", "err", err)
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrBackendUnavailable) {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return service.Result{}, false
	}
	return res, true
}
