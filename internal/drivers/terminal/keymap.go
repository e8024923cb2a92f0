package terminal

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/services/tetris"
)

// KeyMap はターミナル版のキー割り当てです。help.KeyMap を実装します。
type KeyMap struct {
	Left        key.Binding
	Right       key.Binding
	RotateRight key.Binding
	RotateLeft  key.Binding
	SoftDrop    key.Binding
	HardDrop    key.Binding
	Hold        key.Binding
	Pause       key.Binding
	Restart     key.Binding
	Quit        key.Binding
}

// DefaultKeyMap は矢印キーと vim 風のキーを両方受け付けるキー割り当てを返します。
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Left:        key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right:       key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		RotateRight: key.NewBinding(key.WithKeys("up", "x", "k"), key.WithHelp("↑/x", "rotate")),
		RotateLeft:  key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "rotate left")),
		SoftDrop:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "soft drop")),
		HardDrop:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "hard drop")),
		Hold:        key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "hold")),
		Pause:       key.NewBinding(key.WithKeys("p", "f1", "esc"), key.WithHelp("p/f1", "pause")),
		Restart:     key.NewBinding(key.WithKeys("r", "f5"), key.WithHelp("r/f5", "restart")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// actions はゲーム操作に対応するバインディングとアクション名の組を返します。
func (k KeyMap) actions() []struct {
	binding key.Binding
	action  string
} {
	return []struct {
		binding key.Binding
		action  string
	}{
		{k.Left, tetris.ActionMoveLeft},
		{k.Right, tetris.ActionMoveRight},
		{k.RotateRight, tetris.ActionRotateRight},
		{k.RotateLeft, tetris.ActionRotateLeft},
		{k.SoftDrop, tetris.ActionSoftDrop},
		{k.HardDrop, tetris.ActionHardDrop},
		{k.Hold, tetris.ActionHold},
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Left, k.Right, k.RotateRight, k.HardDrop, k.Hold, k.Pause, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Left, k.Right, k.SoftDrop, k.HardDrop},
		{k.RotateRight, k.RotateLeft, k.Hold},
		{k.Pause, k.Restart, k.Quit},
	}
}
