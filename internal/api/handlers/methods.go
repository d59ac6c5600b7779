package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opspulse/opspulse-go/internal/detection"
	"github.com/opspulse/opspulse-go/internal/models"
)

// MethodsHandler serves the detection method catalogue.
type MethodsHandler struct {
	engine *detection.Engine
}

// NewMethodsHandler creates a methods handler.
func NewMethodsHandler(engine *detection.Engine) *MethodsHandler {
	return &MethodsHandler{engine: engine}
}

// MethodsResponse lists the available detection methods.
type MethodsResponse struct {
	Methods       []models.MethodInfo `json:"methods"`
	DefaultMethod string              `json:"default_method"`
}

// ListMethods returns the method catalogue. Availability of the
// matrix-profile method reflects the engine's startup capability check.
func (h *MethodsHandler) ListMethods(c *gin.Context) {
	advanced := h.engine.AdvancedAvailable()

	methods := []models.MethodInfo{
		{
			Name:        detection.MethodIsolationForest.String(),
			Description: "Tree-ensemble isolation scoring over value, change, and rate features",
			Category:    "machine-learning",
			BestFor:     []string{"general purpose", "mixed anomaly shapes", "default choice"},
			Available:   true,
		},
		{
			Name:        detection.MethodZScore.String(),
			Description: "Global standard-score deviation from the series mean",
			Category:    "statistical",
			BestFor:     []string{"stationary metrics", "large point deviations"},
			Available:   true,
		},
		{
			Name:        detection.MethodMovingAverage.String(),
			Description: "Deviation from a trailing rolling mean",
			Category:    "statistical",
			BestFor:     []string{"trending metrics", "local level shifts"},
			Available:   true,
		},
		{
			Name:        detection.MethodLOF.String(),
			Description: "Local outlier factor over nearest-neighbor densities",
			Category:    "machine-learning",
			BestFor:     []string{"clustered workloads", "density outliers"},
			Available:   true,
		},
		{
			Name:        detection.MethodMatrixProfile.String(),
			Description: "Subsequence nearest-neighbor distances for shape discords",
			Category:    "advanced",
			BestFor:     []string{"periodic metrics", "pattern breaks"},
			Available:   advanced,
		},
	}

	c.JSON(http.StatusOK, MethodsResponse{
		Methods:       methods,
		DefaultMethod: detection.DefaultMethod.String(),
	})
}
