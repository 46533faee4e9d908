package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/wayfinder/internal/services"
	"github.com/temcen/wayfinder/internal/validation"
	"github.com/temcen/wayfinder/pkg/models"
)

type RecommendationHandler struct {
	engine  services.RecommendationEngineInterface
	schemas *validation.SchemaValidator
	logger  *logrus.Logger
}

func NewRecommendationHandler(
	engine services.RecommendationEngineInterface,
	schemas *validation.SchemaValidator,
	logger *logrus.Logger,
) *RecommendationHandler {
	return &RecommendationHandler{
		engine:  engine,
		schemas: schemas,
		logger:  logger,
	}
}

// Get serves GET /recommendations/:userId with the context taken from query
// parameters.
func (h *RecommendationHandler) Get(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	reqCtx, opts, err := h.parseQuery(c, userID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PARAMETER", err.Error())
		return
	}

	if c.Query("cached") == "true" {
		cached, err := h.engine.CachedRecommendations(c.Request.Context(), userID)
		if err == nil {
			c.JSON(http.StatusOK, models.RecommendationResponse{
				UserID:          userID,
				Recommendations: cached.Recommendations,
				GeneratedAt:     cached.GeneratedAt,
				CacheHit:        true,
			})
			return
		}
		h.logger.WithError(err).WithField("user_id", userID).Debug("No cached recommendations, generating")
	}

	h.generate(c, reqCtx, opts)
}

// Post serves POST /recommendations with a full JSON context and optional
// options; omitted options keep their defaults.
func (h *RecommendationHandler) Post(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Failed to read request body")
		return
	}

	if h.schemas != nil {
		if result := h.schemas.ValidateRecommendationRequest(body); !result.Valid {
			c.JSON(http.StatusBadRequest, result.ToAPIError())
			return
		}
	}

	defaults := h.engine.DefaultOptions()
	request := models.RecommendationRequest{Options: &defaults}
	if err := json.Unmarshal(body, &request); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Invalid request body format")
		return
	}

	h.generate(c, &request.Context, *request.Options)
}

// Profile serves GET /users/:userId/profile.
func (h *RecommendationHandler) Profile(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, h.engine.GetUserProfile(c.Request.Context(), userID))
}

func (h *RecommendationHandler) generate(c *gin.Context, reqCtx *models.RecommendationContext, opts models.RecommendationOptions) {
	recs, err := h.engine.GenerateRecommendations(c.Request.Context(), reqCtx, opts)
	if err != nil {
		if errors.Is(err, services.ErrInvalidContext) {
			respondError(c, http.StatusBadRequest, "INVALID_CONTEXT", err.Error())
			return
		}
		h.logger.WithError(err).WithField("user_id", reqCtx.UserID).Error("Failed to generate recommendations")
		respondError(c, http.StatusInternalServerError, "RECOMMENDATION_GENERATION_FAILED", "Failed to generate recommendations")
		return
	}

	c.JSON(http.StatusOK, models.RecommendationResponse{
		UserID:          reqCtx.UserID,
		Recommendations: recs,
		GeneratedAt:     time.Now(),
		CacheHit:        false,
	})
}

func (h *RecommendationHandler) parseQuery(c *gin.Context, userID uuid.UUID) (*models.RecommendationContext, models.RecommendationOptions, error) {
	opts := h.engine.DefaultOptions()
	reqCtx := &models.RecommendationContext{
		UserID:      userID,
		TravelStyle: strings.TrimSpace(c.Query("style")),
		SearchQuery: strings.TrimSpace(c.Query("q")),
	}

	if v := c.Query("max_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, opts, fmt.Errorf("max_results must be an integer")
		}
		opts.MaxResults = n
	}

	floatParams := []struct {
		name string
		dst  *float64
	}{
		{"min_score", &opts.MinScore},
		{"diversity", &opts.DiversityFactor},
		{"radius", &opts.GeographicRadiusMeters},
	}
	for _, p := range floatParams {
		if v := c.Query(p.name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, opts, fmt.Errorf("%s must be a number", p.name)
			}
			*p.dst = f
		}
	}

	if v := c.Query("explain"); v != "" {
		explain, err := strconv.ParseBool(v)
		if err != nil {
			return nil, opts, fmt.Errorf("explain must be a boolean")
		}
		opts.IncludeExplanations = explain
	}

	lat, lng := c.Query("lat"), c.Query("lng")
	if lat != "" || lng != "" {
		latF, errLat := strconv.ParseFloat(lat, 64)
		lngF, errLng := strconv.ParseFloat(lng, 64)
		if errLat != nil || errLng != nil {
			return nil, opts, fmt.Errorf("lat and lng must both be numbers")
		}
		reqCtx.CurrentLocation = &models.GeoPoint{Lat: latF, Lng: lngF}
	}

	minBudget, maxBudget := c.Query("budget_min"), c.Query("budget_max")
	if minBudget != "" || maxBudget != "" {
		budget := &models.Budget{Currency: strings.ToUpper(c.Query("currency"))}
		var err error
		if minBudget != "" {
			if budget.Min, err = strconv.ParseFloat(minBudget, 64); err != nil {
				return nil, opts, fmt.Errorf("budget_min must be a number")
			}
		}
		if maxBudget != "" {
			if budget.Max, err = strconv.ParseFloat(maxBudget, 64); err != nil {
				return nil, opts, fmt.Errorf("budget_max must be a number")
			}
		} else {
			return nil, opts, fmt.Errorf("budget_max is required with budget_min")
		}
		reqCtx.Budget = budget
	}

	if v := c.Query("group_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, opts, fmt.Errorf("group_size must be an integer")
		}
		reqCtx.GroupSize = &n
	}

	if v := c.Query("exclude"); v != "" {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				reqCtx.PreviousBookingIDs = append(reqCtx.PreviousBookingIDs, id)
			}
		}
	}

	return reqCtx, opts, nil
}

func parseUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_USER_ID", "Invalid user ID format")
		return uuid.Nil, false
	}
	return userID, true
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
