// Package server 通过 HTTP 暴露分层缓存
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"vrcache/pkg/cache"
	"vrcache/pkg/config"
	"vrcache/pkg/logger"
	"vrcache/pkg/metrics"
)

// Backend 服务依赖的缓存能力，*cache.Tiered 满足此接口
type Backend interface {
	cache.Cache
	GetStats() []cache.TierStats
	Promotions() int64
}

// Server 缓存 HTTP 服务
type Server struct {
	config  config.ServerConfig
	backend Backend
	logger  *logrus.Entry
	router  *gin.Engine
	http    *http.Server
}

// New 创建服务并注册路由，不开始监听
func New(cfg config.ServerConfig, backend Backend, entry *logrus.Entry) *Server {
	if entry == nil {
		entry = logger.WithComponent("server")
	}

	s := &Server{
		config:  cfg,
		backend: backend,
		logger:  entry,
	}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	router.GET("/healthz", s.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.NewRegistry(s.backend), promhttp.HandlerOpts{})))

	v1 := router.Group("/v1")
	{
		v1.GET("/cache/:key", s.getEntry)
		v1.PUT("/cache/:key", s.putEntry)
		v1.DELETE("/cache/:key", s.deleteEntry)
		v1.DELETE("/cache", s.clear)
		v1.POST("/cache/invalidate", s.invalidate)
		v1.GET("/stats", s.stats)
	}
	return router
}

// Handler 返回路由，便于测试和嵌入其他服务
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start 在后台开始监听。监听失败同步返回。
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}

	s.logger.WithField("addr", listener.Addr().String()).Info("HTTP 服务已启动")

	go func() {
		if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("HTTP 服务异常退出")
		}
	}()
	return nil
}

// Shutdown 优雅关闭，等待进行中的请求完成
func (s *Server) Shutdown(ctx context.Context) error {
	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.WithError(err).Error("HTTP 服务关闭失败")
		return err
	}
	s.logger.Info("HTTP 服务已关闭")
	return nil
}

// requestLogger 用 logrus 记录每个请求
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("请求完成")
	}
}
