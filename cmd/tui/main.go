package main

import (
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/config"
	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/drivers/terminal"
)

func main() {
	// 標準エラーに出すと画面が崩れるので、ログはファイルに書く
	f, err := tea.LogToFile("gitris-tui.log", "tui")
	if err != nil {
		log.Printf("warning: ログファイルを開けませんでした: %v", err)
	} else {
		defer f.Close()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗しました: %v\n", err)
		os.Exit(1)
	}

	model, err := terminal.NewModel(cfg.GameSettings(), cfg.TickInterval)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ゲームの作成に失敗しました: %v\n", err)
		os.Exit(1)
	}

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "エラーが発生しました: %v\n", err)
		os.Exit(1)
	}
}
