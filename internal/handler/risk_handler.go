package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-ekskul-api/internal/models"
	"github.com/noah-isme/sma-ekskul-api/internal/service"
	appErrors "github.com/noah-isme/sma-ekskul-api/pkg/errors"
	"github.com/noah-isme/sma-ekskul-api/pkg/response"
)

// RiskHandler exposes dropout risk scoring and activity recommendations.
type RiskHandler struct {
	risk *service.RiskService
}

// NewRiskHandler constructs RiskHandler.
func NewRiskHandler(risk *service.RiskService) *RiskHandler {
	return &RiskHandler{risk: risk}
}

// Assess godoc
// @Summary Assess dropout risk for an active enrollment
// @Tags AI
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.AssessRiskRequest true "Assessment payload"
// @Success 200 {object} response.Envelope
// @Router /ai/dropout-risk [post]
func (h *RiskHandler) Assess(c *gin.Context) {
	var req service.AssessRiskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assessment, err := h.risk.AssessDropoutRisk(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assessment, nil)
}

// History godoc
// @Summary List stored predictions
// @Tags AI
// @Produce json
// @Security BearerAuth
// @Param studentId query string false "Filter by student"
// @Param model query string false "Filter by model type"
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /ai/predictions [get]
func (h *RiskHandler) History(c *gin.Context) {
	limit := 10
	if parsed, err := strconv.Atoi(c.DefaultQuery("limit", "10")); err == nil {
		limit = parsed
	}
	predictions, err := h.risk.History(c.Request.Context(), c.Query("studentId"), c.Query("model"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, predictions, nil)
}

// Recommend godoc
// @Summary Recommend activities for a student
// @Tags AI
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /ai/recommendations/{studentId} [get]
func (h *RiskHandler) Recommend(c *gin.Context) {
	claims := claimsFromContext(c)
	studentID := c.Param("studentId")
	if claims != nil && claims.Role == models.RoleStudent && claims.UserID != studentID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	limit := 5
	if parsed, err := strconv.Atoi(c.DefaultQuery("limit", "5")); err == nil {
		limit = parsed
	}
	recommendations, err := h.risk.Recommend(c.Request.Context(), studentID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, recommendations, nil)
}
