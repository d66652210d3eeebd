package cache

import (
	baseerr "vrcache/pkg/error"
)

// CacheError 缓存组件的错误类型
type CacheError struct {
	baseerr.BaseError
}

const (
	// ErrConfigInvalid 表示缓存配置无效，只在构造时返回。
	ErrConfigInvalid baseerr.ErrorCode = "CONFIG_INVALID"
	// ErrCacheMiss 表示在缓存中未找到请求的条目。
	ErrCacheMiss baseerr.ErrorCode = "CACHE_MISS"
	// ErrCacheStopped 表示缓存已经停止。
	ErrCacheStopped baseerr.ErrorCode = "CACHE_STOPPED"
)

var (
	ErrCacheMissNotFound = NewCacheError(ErrCacheMiss, "cache entry not found")
	ErrCacheStoppedState = NewCacheError(ErrCacheStopped, "cache is stopped")
)

func NewCacheError(code baseerr.ErrorCode, message string) *CacheError {
	return &CacheError{
		BaseError: *baseerr.NewError(code, message),
	}
}

func configError(format string, args ...interface{}) *CacheError {
	return &CacheError{
		BaseError: *baseerr.Newf(ErrConfigInvalid, format, args...),
	}
}
