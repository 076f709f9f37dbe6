// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"mood-mate-go/internal/config"
	"mood-mate-go/internal/handler"
	"mood-mate-go/internal/middleware"
	"mood-mate-go/internal/repository"
	"mood-mate-go/internal/service"
	"mood-mate-go/pkg/llm"
	"mood-mate-go/pkg/log"
	"mood-mate-go/pkg/sandbox"
	"mood-mate-go/pkg/storage"
	"mood-mate-go/pkg/tts"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 初始化外部服务客户端。任何一个未配置只会禁用对应功能。
	store := storage.NewMinIO(cfg.Store)
	llmClient := llm.NewClient(cfg.LLM)
	ttsClient := tts.NewClient(cfg.TTS)
	sandboxClient := sandbox.NewClient(cfg.Sandbox)
	if ttsClient == nil {
		log.Warnf("TTS API Key 未配置，语音合成已禁用")
	}
	if sandboxClient == nil {
		log.Warnf("沙箱后端未配置，高风险二次分析已禁用")
	}

	// 4. 初始化 Repository 和 Service (依赖注入)
	checkinRepo := repository.NewCheckinRepository(store)
	analysisService := service.NewAnalysisService(llmClient, checkinRepo, cfg.Checkin.HistoryWindowDays)
	escalationService := service.NewEscalationService(sandboxClient, cfg.Sandbox.TimeoutSeconds)
	voiceService := service.NewVoiceService(ttsClient, cfg.TTS.OutputDir)
	checkinService := service.NewCheckinService(
		analysisService,
		escalationService,
		voiceService,
		checkinRepo,
		cfg.Checkin.HistoryWindowDays,
	)

	// 5. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	checkinHandler := handler.NewCheckinHandler(checkinService, cfg.Checkin.DefaultUserID)
	r.POST("/checkin", checkinHandler.Checkin)
	r.GET("/history", checkinHandler.History)
	r.Static("/static", cfg.TTS.OutputDir)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}
