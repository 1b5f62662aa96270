package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskboard/internal/cache"
)

// CacheHandler exposes the stats cache for operators. It is mounted outside
// /api and only when caching is enabled.
type CacheHandler struct {
	Cache  cache.Cache
	Warmer *cache.CacheWarmer
}

func NewCacheHandler(c cache.Cache, warmer *cache.CacheWarmer) *CacheHandler {
	return &CacheHandler{Cache: c, Warmer: warmer}
}

// WarmCache runs every registered warmup job now.
// POST /cache/warm
func (h *CacheHandler) WarmCache(c *gin.Context) {
	if h.Warmer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Cache warmer is not initialized"})
		return
	}

	if err := h.Warmer.WarmCacheManually(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Cache warming completed",
	})
}

// EvictCacheKey removes one key, or every key matching a trailing-* pattern.
// DELETE /cache/keys/:key
func (h *CacheHandler) EvictCacheKey(c *gin.Context) {
	key := c.Param("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Key parameter is required"})
		return
	}

	var err error
	if strings.HasSuffix(key, "*") {
		err = h.Cache.DeletePattern(key)
	} else {
		err = h.Cache.Delete(key)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Cache key evicted",
		"key":     key,
	})
}

// GetCacheHealth reports degraded when the shared tier is unreachable; the
// in-memory tier keeps serving either way.
// GET /cache/health
func (h *CacheHandler) GetCacheHealth(c *gin.Context) {
	health := gin.H{"status": "healthy", "healthy": true}

	if err := h.Cache.Health(); err != nil {
		health["status"] = "degraded"
		health["healthy"] = false
		health["error"] = err.Error()
	}
	if h.Warmer != nil {
		health["warmer"] = h.Warmer.GetStats()
	}

	c.JSON(http.StatusOK, health)
}

// GET /cache/stats
func (h *CacheHandler) GetCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cache": h.Cache.Stats()})
}
