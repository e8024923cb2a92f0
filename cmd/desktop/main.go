package main

import (
	"log"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/config"
	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/drivers/desktop"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	game, err := desktop.New(cfg.GameSettings(), cfg.TickInterval)
	if err != nil {
		log.Fatalf("ゲームの作成に失敗しました: %v", err)
	}

	ebiten.SetWindowTitle("GITRIS")
	ebiten.SetWindowSize(game.WindowSize())
	ebiten.SetTPS(game.TPS())
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
