package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/llmrouter/internal/services"
	"github.com/huangang/llmrouter/pkg/response"
)

// CacheHandler is the admin surface for the response cache.
type CacheHandler struct {
	cache *services.ResponseCache
}

func NewCacheHandler(cache *services.ResponseCache) *CacheHandler {
	return &CacheHandler{cache: cache}
}

func (h *CacheHandler) Stats(c *gin.Context) {
	stats, err := h.cache.Stats(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, stats)
}

func (h *CacheHandler) Clear(c *gin.Context) {
	removed, err := h.cache.Clear(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"removed": removed})
}
