package desktop

import (
	"encoding/json"
	"fmt"
	"image/color"
	"log"
	"time"

	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/drivers/keyrepeat"
	models "github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/models/tetris"
	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/render"
	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/services/tetris"
)

const (
	cellSize   = 28
	boardLeft  = 16
	boardTop   = 16
	panelWidth = 160
)

// binding は 1 つのキーと、それが送るアクションの組です。
type binding struct {
	key    ebiten.Key
	action string
}

// repeatBindings は押し続けると keyrepeat.Interval ごとに繰り返すキー割り当てです。
var repeatBindings = []binding{
	{ebiten.KeyArrowLeft, tetris.ActionMoveLeft},
	{ebiten.KeyA, tetris.ActionMoveLeft},
	{ebiten.KeyArrowRight, tetris.ActionMoveRight},
	{ebiten.KeyD, tetris.ActionMoveRight},
}

// keyBindings は押した瞬間だけ反応するキー割り当てです。
var keyBindings = []binding{
	{ebiten.KeyArrowUp, tetris.ActionRotateRight},
	{ebiten.KeyX, tetris.ActionRotateRight},
	{ebiten.KeyZ, tetris.ActionRotateLeft},
	{ebiten.KeyArrowDown, tetris.ActionSoftDrop},
	{ebiten.KeyS, tetris.ActionSoftDrop},
	{ebiten.KeySpace, tetris.ActionHardDrop},
	{ebiten.KeyC, tetris.ActionHold},
	{ebiten.KeyShiftLeft, tetris.ActionHold},
}

// trackedKeys は押した瞬間の判定のために毎フレーム状態を記録するキーです。
var trackedKeys = func() []ebiten.Key {
	keys := []ebiten.Key{ebiten.KeyQ, ebiten.KeyF1, ebiten.KeyEscape, ebiten.KeyR, ebiten.KeyF5, ebiten.KeyP}
	for _, b := range keyBindings {
		keys = append(keys, b.key)
	}
	return keys
}()

var kindColors = map[models.PieceKind]color.RGBA{
	models.KindI: {R: 0, G: 200, B: 220, A: 255},
	models.KindO: {R: 230, G: 210, B: 0, A: 255},
	models.KindT: {R: 160, G: 60, B: 200, A: 255},
	models.KindS: {R: 60, G: 200, B: 70, A: 255},
	models.KindZ: {R: 220, G: 50, B: 50, A: 255},
	models.KindJ: {R: 40, G: 80, B: 220, A: 255},
	models.KindL: {R: 240, G: 140, B: 20, A: 255},
}

var (
	backgroundColor = color.RGBA{R: 12, G: 14, B: 12, A: 255}
	wellColor       = color.RGBA{R: 24, G: 26, B: 30, A: 255}
	frameColor      = color.RGBA{R: 120, G: 120, B: 130, A: 255}
)

// Game は ebiten.Game の実装で、Update 1 回ごとに GameState を 1 ティック進めます。
// ティック間隔は TPS で決まるので、起動時に ebiten.SetTPS(g.TPS()) を呼びます。
type Game struct {
	settings    tetris.GameSettings
	state       *tetris.GameState
	paused      bool
	tps         int
	repeatEvery int
	prevKeys    map[ebiten.Key]bool
	width       int
	height      int
}

// New は設定から新しいゲームを作ります。tickInterval が 0 以下なら tetris.DefaultTickInterval を使います。
func New(settings tetris.GameSettings, tickInterval time.Duration) (*Game, error) {
	state, err := tetris.NewGameState(settings)
	if err != nil {
		return nil, err
	}
	if tickInterval <= 0 {
		tickInterval = tetris.DefaultTickInterval
	}
	d := settings.Dimensions
	return &Game{
		settings:    settings,
		state:       state,
		tps:         keyrepeat.TPS(tickInterval),
		repeatEvery: keyrepeat.Ticks(keyrepeat.Interval, tickInterval),
		prevKeys:    make(map[ebiten.Key]bool),
		width:       boardLeft*2 + d.Width*cellSize + panelWidth,
		height:      boardTop*2 + d.VisibleHeight*cellSize,
	}, nil
}

// TPS は TICK_INTERVAL に対応する 1 秒あたりの Update 回数です。
func (g *Game) TPS() int {
	return g.tps
}

// WindowSize はウィンドウの初期サイズを返します。
func (g *Game) WindowSize() (int, int) {
	return g.width, g.height
}

// Update はキー入力を処理してからゲームを 1 ティック進めます。一時停止中はティックしません。
func (g *Game) Update() error {
	if g.handleInput() {
		return ebiten.Termination
	}
	if !g.paused {
		g.state.Tick()
	}
	return nil
}

// handleInput はキー入力を処理します。終了が要求されたら true を返します。
// 横移動は押し続けると繰り返し、それ以外は押した瞬間だけ反応します。
func (g *Game) handleInput() bool {
	currentKeys := map[ebiten.Key]bool{}
	for _, k := range trackedKeys {
		currentKeys[k] = ebiten.IsKeyPressed(k)
	}
	pressed := func(keys ...ebiten.Key) bool {
		for _, k := range keys {
			if currentKeys[k] && !g.prevKeys[k] {
				return true
			}
		}
		return false
	}
	defer func() { g.prevKeys = currentKeys }()

	if pressed(ebiten.KeyQ) {
		return true
	}
	// F1/Esc: 一時停止の切り替え
	if pressed(ebiten.KeyF1, ebiten.KeyEscape) {
		g.paused = !g.paused
		return false
	}
	// R/F5: いつでもやり直し
	if pressed(ebiten.KeyR, ebiten.KeyF5) {
		g.restart()
		return false
	}
	// P: 盤面をバグ報告用に JSON でコピー
	if pressed(ebiten.KeyP) {
		g.copySnapshot()
	}
	if g.paused {
		return false
	}
	for _, b := range repeatBindings {
		if keyrepeat.Fires(inpututil.KeyPressDuration(b.key), g.repeatEvery) {
			tetris.ApplyPlayerInput(g.state, b.action)
		}
	}
	for _, b := range keyBindings {
		if pressed(b.key) {
			tetris.ApplyPlayerInput(g.state, b.action)
		}
	}
	return false
}

func (g *Game) restart() {
	state, err := tetris.NewGameState(g.settings)
	if err != nil {
		// 起動時に同じ設定で作れているので、ここには来ないはず
		log.Printf("[Desktop] Failed to restart: %v", err)
		return
	}
	g.state = state
	g.paused = false
	log.Printf("[Desktop] Restarted")
}

// copySnapshot は現在のスナップショットを JSON としてクリップボードに書き込みます。
func (g *Game) copySnapshot() {
	data, err := json.MarshalIndent(g.state.Snapshot(), "", "  ")
	if err != nil {
		log.Printf("[Desktop] Failed to marshal snapshot: %v", err)
		return
	}
	if err := clipboard.WriteAll(string(data)); err != nil {
		log.Printf("[Desktop] Failed to copy snapshot: %v", err)
		return
	}
	log.Printf("[Desktop] Snapshot copied to clipboard (revision %d)", g.state.Revision())
}

// Draw は可視領域の盤面とサイドパネルを描画します。
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)

	snap := g.state.Snapshot()
	board := render.VisibleBoard(snap)

	wellW := float32(board.Width * cellSize)
	wellH := float32(board.Height * cellSize)
	vector.FillRect(screen, boardLeft, boardTop, wellW, wellH, wellColor, false)

	for row, cells := range board.Cells {
		for col, c := range cells {
			if !c.Filled {
				continue
			}
			x := float32(boardLeft + col*cellSize)
			y := float32(boardTop + row*cellSize)
			clr := kindColors[c.Kind]
			if !c.Active {
				clr = dim(clr)
			}
			vector.FillRect(screen, x+1, y+1, cellSize-2, cellSize-2, clr, false)
		}
	}
	vector.StrokeRect(screen, boardLeft, boardTop, wellW, wellH, 2, frameColor, false)

	panelX := boardLeft*2 + board.Width*cellSize
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("LEVEL %d", snap.Level), panelX, boardTop)
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("LINES %d", snap.LinesCleared), panelX, boardTop+20)
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("NEXT  %s", snap.Next), panelX, boardTop+48)
	hold := render.KindLabel(snap.Held)
	if !g.state.HoldAvailable() {
		hold += " (used)"
	}
	ebitenutil.DebugPrintAt(screen, "HOLD  "+hold, panelX, boardTop+68)
	if n := render.HiddenActiveTiles(snap); n > 0 && !snap.IsOver {
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("^ incoming (%d)", n), panelX, boardTop+88)
	}
	switch {
	case snap.IsOver:
		ebitenutil.DebugPrintAt(screen, "GAME OVER", panelX, boardTop+116)
	case g.paused:
		ebitenutil.DebugPrintAt(screen, "PAUSED", panelX, boardTop+116)
	}
	ebitenutil.DebugPrintAt(screen, "F1/Esc: pause", panelX, g.height-boardTop-76)
	ebitenutil.DebugPrintAt(screen, "R/F5: restart", panelX, g.height-boardTop-56)
	ebitenutil.DebugPrintAt(screen, "P: copy board", panelX, g.height-boardTop-36)
	ebitenutil.DebugPrintAt(screen, "Q: quit", panelX, g.height-boardTop-16)
}

// Layout は論理画面サイズを固定で返します。
func (g *Game) Layout(_, _ int) (int, int) {
	return g.width, g.height
}

// dim はロック済みタイル用に色を少し暗くします。
func dim(c color.RGBA) color.RGBA {
	return color.RGBA{R: c.R * 3 / 4, G: c.G * 3 / 4, B: c.B * 3 / 4, A: c.A}
}
