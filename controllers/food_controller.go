package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dylanreedx/bite/services"

	"github.com/gin-gonic/gin"
)

// FoodController serves food search and serving lookups. The search and
// resolver services are injected at router setup so every request shares
// one provider client and one backfill worker.
type FoodController struct {
	search   *services.SearchService
	resolver *services.FoodResolver
}

func NewFoodController(search *services.SearchService, resolver *services.FoodResolver) *FoodController {
	return &FoodController{search: search, resolver: resolver}
}

// GET /food/search?q=apple
func (fc *FoodController) Search(c *gin.Context) {
	results, err := fc.search.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"foods": results})
}

// GET /food/:foodId/servings
func (fc *FoodController) Servings(c *gin.Context) {
	foodID, err := strconv.ParseInt(c.Param("foodId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid food ID"})
		return
	}

	servings, err := fc.resolver.ResolveServings(c.Request.Context(), foodID)
	if err != nil {
		if errors.Is(err, services.ErrRateLimitExhausted) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Nutrition provider unavailable, try again later"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch servings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"servings": servings})
}
