package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/address-tagger/app/responses"
	"github.com/address-tagger/app/services"
	"github.com/address-tagger/internal/gazetteer"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GazetteerController exposes gazetteer lookups.
type GazetteerController struct {
	gazetteerService *services.GazetteerService
	logger           *zap.Logger
}

func NewGazetteerController(gazetteerService *services.GazetteerService, logger *zap.Logger) *GazetteerController {
	return &GazetteerController{gazetteerService: gazetteerService, logger: logger}
}

// Classify reports the exact and phonetic category of a name.
func (gc *GazetteerController) Classify(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		errorJSON(c, http.StatusBadRequest, "MISSING_NAME", "Missing query parameter: name")
		return
	}

	cl := gc.gazetteerService.Classify(name)
	c.JSON(http.StatusOK, responses.ClassifyResponse{
		Name:             cl.Name,
		Exact:            cl.Exact,
		Phonetic:         cl.Phonetic,
		Codes:            cl.Codes,
		GazetteerVersion: gc.gazetteerService.Version(),
	})
}

// Suggest lists gazetteer names close to q. categories is a comma separated filter.
func (gc *GazetteerController) Suggest(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		errorJSON(c, http.StatusBadRequest, "MISSING_QUERY", "Missing query parameter: q")
		return
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errorJSON(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = n
	}

	var categories []gazetteer.Category
	if v := c.Query("categories"); v != "" {
		parsed, err := gazetteer.ParsePriority(strings.Split(v, ","))
		if err != nil {
			errorJSON(c, http.StatusBadRequest, "INVALID_CATEGORY", err.Error())
			return
		}
		categories = parsed
	}

	got, source, err := gc.gazetteerService.Suggest(query, categories, limit)
	if errors.Is(err, services.ErrSuggestUnavailable) {
		errorJSON(c, http.StatusServiceUnavailable, "SUGGEST_UNAVAILABLE", err.Error())
		return
	}
	if err != nil {
		gc.logger.Error("Suggest failed", zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "SUGGEST_ERROR", err.Error())
		return
	}

	c.JSON(http.StatusOK, responses.SuggestResponse{
		Query:       query,
		Source:      source,
		Suggestions: got,
	})
}
