package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/api"
	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/config"
	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/services/tetris"
)

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.ValidateServer()
	}
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	sessionManager := tetris.NewSessionManager(cfg.GameSettings(), cfg.TickInterval)
	auth := middleware.AuthConfig{JWTSecret: cfg.JWTSecret, BypassAuth: cfg.BypassAuth}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(sessionManager, auth, cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (tick %s, board %dx%d)", cfg.Port, cfg.TickInterval, cfg.Dimensions.Width, cfg.Dimensions.Height)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("サーバーの起動に失敗しました: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// WebSocket は Shutdown では閉じられないので、先にセッションマネージャーを止める
	sessionManager.Shutdown()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("サーバーのシャットダウンに失敗しました: %v", err)
	}
}
