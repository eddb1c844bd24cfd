package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"marketlens/internal/insight"
)

type SearchService interface {
	Search(ctx context.Context, req insight.SearchRequest) (*insight.SearchResponse, error)
}

type SearchHandler struct {
	service SearchService
}

func NewSearchHandler(service SearchService) *SearchHandler {
	return &SearchHandler{service: service}
}

func (h *SearchHandler) Search(c *gin.Context) {
	var body SearchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		slog.Warn("invalid search body", "error", err)
		writeError(c, insight.CodeInvalidRequest, "request body must be JSON with a query field", nil)
		return
	}

	res, err := h.service.Search(c.Request.Context(), insight.SearchRequest{
		Query:  body.Query,
		Source: body.filter(),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if res.Cached {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", res.Results)
}
