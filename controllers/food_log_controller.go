package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dylanreedx/bite/services"

	"github.com/gin-gonic/gin"
)

type FoodLogController struct {
	logs *services.FoodLogService
}

func NewFoodLogController(logs *services.FoodLogService) *FoodLogController {
	return &FoodLogController{logs: logs}
}

type CreateLogInput struct {
	FoodID    int64   `json:"food_id" binding:"required"`
	ServingID int64   `json:"serving_id" binding:"required"`
	Quantity  float64 `json:"quantity" binding:"required,gt=0"`
}

// POST /food/log
func (flc *FoodLogController) Create(c *gin.Context) {
	var input CreateLogInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetUint("userID")
	entry, err := flc.logs.AddLog(c.Request.Context(), userID, input.FoodID, input.ServingID, input.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidReference):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrRateLimitExhausted):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Nutrition provider unavailable, try again later"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create food log"})
		}
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// DELETE /food/log?id=123
func (flc *FoodLogController) Delete(c *gin.Context) {
	logID, err := strconv.ParseUint(c.Query("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Log ID required"})
		return
	}

	userID := c.GetUint("userID")
	if err := flc.logs.DeleteLog(c.Request.Context(), uint(logID), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete food log"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GET /food/log
func (flc *FoodLogController) ListToday(c *gin.Context) {
	userID := c.GetUint("userID")
	entries, err := flc.logs.ListToday(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch food logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": entries})
}
