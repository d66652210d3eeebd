package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"vrcache/pkg/cache"
	baseerr "vrcache/pkg/error"
)

// ErrBadRequest 请求体或参数无效
const ErrBadRequest baseerr.ErrorCode = "BAD_REQUEST"

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// EntryResponse 读取条目的响应
type EntryResponse struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
	ETag  string      `json:"etag"`
}

// PutRequest 写入条目的请求体，ttl 为 Go 时长字符串，如 "30s"
type PutRequest struct {
	Value    json.RawMessage `json:"value"`
	TTL      string          `json:"ttl"`
	Metadata interface{}     `json:"metadata"`
}

// PutResponse 写入条目的响应
type PutResponse struct {
	Key  string `json:"key"`
	ETag string `json:"etag"`
}

// InvalidateRequest 模式失效请求
type InvalidateRequest struct {
	Pattern string `json:"pattern" binding:"required"`
}

// InvalidateResponse 模式失效响应
type InvalidateResponse struct {
	Count int `json:"count"`
}

func abortWithError(c *gin.Context, status int, code baseerr.ErrorCode, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: string(code), Message: message})
}

func abortWithCacheError(c *gin.Context, status int, err *cache.CacheError) {
	abortWithError(c, status, err.Code, err.Message)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getEntry(c *gin.Context) {
	key := c.Param("key")

	value, ok := s.backend.Get(key)
	if !ok {
		abortWithCacheError(c, http.StatusNotFound, cache.ErrCacheMissNotFound)
		return
	}

	// ETag 取缓存中保存的值，只在写入后计算一次
	etag, ok := s.backend.GetETag(key)
	if !ok {
		abortWithCacheError(c, http.StatusNotFound, cache.ErrCacheMissNotFound)
		return
	}
	c.Header("ETag", quoteETag(etag))

	if matchesETag(c.GetHeader("If-None-Match"), etag) {
		c.Status(http.StatusNotModified)
		return
	}

	c.JSON(http.StatusOK, EntryResponse{Key: key, Value: value, ETag: etag})
}

func (s *Server) putEntry(c *gin.Context) {
	key := c.Param("key")

	var req PutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, ErrBadRequest, err.Error())
		return
	}
	if len(req.Value) == 0 {
		abortWithError(c, http.StatusBadRequest, ErrBadRequest, "value is required")
		return
	}
	var value interface{}
	if err := json.Unmarshal(req.Value, &value); err != nil {
		abortWithError(c, http.StatusBadRequest, ErrBadRequest, err.Error())
		return
	}

	opts := []cache.SetOption{cache.WithMetadata(req.Metadata)}
	if req.TTL != "" {
		ttl, err := time.ParseDuration(req.TTL)
		if err != nil || ttl < 0 {
			abortWithError(c, http.StatusBadRequest, ErrBadRequest, "ttl must be a non-negative duration such as 30s")
			return
		}
		opts = append(opts, cache.WithTTL(ttl))
	}

	if !s.backend.Set(key, value, opts...) {
		abortWithCacheError(c, http.StatusServiceUnavailable, cache.ErrCacheStoppedState)
		return
	}

	etag, ok := s.backend.GetETag(key)
	if !ok {
		// 值超过内存上限时写入后立即被淘汰，缓存中没有可用的 ETag
		etag = cache.ComputeETag(value)
	}
	c.Header("ETag", quoteETag(etag))
	c.JSON(http.StatusOK, PutResponse{Key: key, ETag: etag})
}

func (s *Server) deleteEntry(c *gin.Context) {
	if !s.backend.Delete(c.Param("key")) {
		abortWithCacheError(c, http.StatusNotFound, cache.ErrCacheMissNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) clear(c *gin.Context) {
	s.backend.Clear()
	s.logger.Info("缓存已清空")
	c.Status(http.StatusNoContent)
}

func (s *Server) invalidate(c *gin.Context) {
	var req InvalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, ErrBadRequest, err.Error())
		return
	}

	count := s.backend.Invalidate(req.Pattern)
	s.logger.WithField("pattern", req.Pattern).WithField("count", count).Info("按模式失效")
	c.JSON(http.StatusOK, InvalidateResponse{Count: count})
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, s.backend.GetStats())
}

func quoteETag(etag string) string {
	return `"` + etag + `"`
}

// matchesETag 解析 If-None-Match，支持 *、逗号分隔列表和弱标签前缀
func matchesETag(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		candidate = strings.TrimPrefix(candidate, "W/")
		if strings.Trim(candidate, `"`) == etag {
			return true
		}
	}
	return false
}
