package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"vrcache/pkg/cache"
	"vrcache/pkg/config"
	"vrcache/pkg/logger"
	"vrcache/pkg/server"
)

var (
	configPath  = flag.String("config", "", "配置文件路径 (例如 ./config/vrcache.yaml)")
	logLevel    = flag.String("log-level", "", "日志级别 (debug, info, warn, error)，覆盖配置文件")
	logFormat   = flag.String("log-format", "", "日志格式 (json or text)，覆盖配置文件")
	addr        = flag.String("addr", "", "HTTP 监听地址，覆盖配置文件")
	printConfig = flag.Bool("print-config", false, "输出最终生效的配置后退出")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.SetLogLevel(*logLevel)
	}
	if *logFormat != "" {
		cfg.Logger.Format = *logFormat
	}
	if *addr != "" {
		cfg.SetAddr(*addr)
	}

	if *printConfig {
		data, err := cfg.Dump()
		if err != nil {
			fmt.Fprintf(os.Stderr, "输出配置失败: %v\n", err)
			os.Exit(1)
		}
		if _, err := os.Stdout.Write(data); err != nil {
			fmt.Fprintf(os.Stderr, "输出配置失败: %v\n", err)
			os.Exit(1)
		}
		return
	}

	logger.Init(cfg.Logger)
	log := logger.WithComponent("main")

	gin.SetMode(cfg.Server.Mode)

	tiered, err := cache.NewTieredFromConfig(cfg.Cache.Tiers, cache.WithLogger(logger.WithComponent("cache")))
	if err != nil {
		log.WithError(err).Fatal("创建分层缓存失败")
	}
	defer tiered.Stop()

	srv := server.New(cfg.Server, tiered, logger.WithComponent("server"))
	if err := srv.Start(); err != nil {
		// Fatal 不执行 defer，先停止缓存
		tiered.Stop()
		log.WithError(err).Fatal("启动 HTTP 服务失败")
	}
	log.WithField("tiers", tiered.Tiers()).Info("vrcache 已启动")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	log.WithField("signal", sig.String()).Info("正在关闭...")
	if err := srv.Shutdown(context.Background()); err != nil {
		log.WithError(err).Warn("HTTP 服务未能优雅关闭")
	}
}
