package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ossideas/internal/domain"
	"ossideas/internal/service"
)

// IdeaHandler expone el catalogo de ideas.
type IdeaHandler struct {
	logger *zap.Logger
	ideas  *service.IdeaService
}

func NewIdeaHandler(logger *zap.Logger, ideas *service.IdeaService) *IdeaHandler {
	return &IdeaHandler{logger: logger, ideas: ideas}
}

// List maneja GET /ideas.
func (h *IdeaHandler) List(c *gin.Context) {
	filter := domain.IdeaFilter{
		Search:   c.Query("q"),
		Sort:     c.Query("sort"),
		MinStars: queryInt(c, "min_stars"),
		Page:     queryInt(c, "page"),
		PerPage:  queryInt(c, "per_page"),
	}
	if raw := strings.TrimSpace(c.Query("categories")); raw != "" {
		filter.Categories = strings.Split(raw, ",")
	}

	page, err := h.ideas.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("list ideas failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list ideas"})
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get maneja GET /ideas/:id.
func (h *IdeaHandler) Get(c *gin.Context) {
	idea, err := h.ideas.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrIdeaNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "idea not found"})
			return
		}
		h.logger.Error("get idea failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch idea"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"idea": idea})
}

// Related maneja GET /ideas/:id/related.
func (h *IdeaHandler) Related(c *gin.Context) {
	related, err := h.ideas.Related(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrIdeaNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "idea not found"})
			return
		}
		h.logger.Error("related ideas failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch related ideas"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": related})
}

func queryInt(c *gin.Context, name string) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
