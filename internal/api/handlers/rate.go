package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"aidchain/internal/rates"
)

type RateHandler struct {
	cache *rates.Cache
}

func NewRateHandler(cache *rates.Cache) *RateHandler {
	return &RateHandler{cache: cache}
}

// Current returns the native-asset/display-currency rate. Never fails;
// worst case it is the stale or fallback value.
func (h *RateHandler) Current(c *gin.Context) {
	rate := h.cache.GetRate(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"rate": rate})
}
