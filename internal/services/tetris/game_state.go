package tetris

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/models/tetris"
)

// GameSettings は1ゲームを作成するための設定です。
type GameSettings struct {
	Dimensions tetris.Dimensions
	StartLevel int
	Seed       int64             // 0 の場合は現在時刻をシードにします
	Randomizer tetris.Randomizer // nil の場合は Seed から Bag を作ります
}

// DefaultGameSettings は 10x40 の盤面、レベル1開始の設定を返します。
func DefaultGameSettings() GameSettings {
	return GameSettings{
		Dimensions: tetris.DefaultDimensions(),
		StartLevel: 1,
	}
}

// GameState は単一プレイヤーのテトリスゲーム状態です。
// 同期的に動作し、タイミング（Tick を呼ぶ間隔）は呼び出し側のドライバが管理します。
// 同時に複数のゴルーチンから操作してはいけません。
type GameState struct {
	grid       *tetris.Grid
	piece      *tetris.Piece // ゲームオーバーでスポーンできなかった場合は nil
	randomizer tetris.Randomizer

	epoch        int // 最後に落下してからのTick数
	startLevel   int
	level        int
	linesCleared int
	lastCleared  int // 直前のロックで消えたライン数

	held     tetris.PieceKind
	hasHeld  bool
	holdUsed bool // 現在のピースでホールドが使用済みかどうか
	over     bool
	revision uint64 // 盤面が変わるたびに増える（ブロードキャスト要否の判定用）
}

// NewGameState は新しいゲーム状態を初期化し、最初のピースを出現させます。
//
// Parameters:
//   settings : 盤面サイズ・開始レベル・乱数の設定
// Returns:
//   *GameState: 初期化されたゲーム状態のポインタ
//   error: 設定が不正な場合
func NewGameState(settings GameSettings) (*GameState, error) {
	if err := settings.Dimensions.Validate(); err != nil {
		return nil, fmt.Errorf("盤面サイズが不正です: %w", err)
	}
	if settings.StartLevel < 1 {
		return nil, fmt.Errorf("開始レベルは1以上である必要があります: %d", settings.StartLevel)
	}

	randomizer := settings.Randomizer
	if randomizer == nil {
		seed := settings.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		randomizer = tetris.NewBag(rand.New(rand.NewSource(seed)))
	}

	s := &GameState{
		grid:       tetris.NewGrid(settings.Dimensions),
		randomizer: randomizer,
		startLevel: settings.StartLevel,
		level:      settings.StartLevel,
	}
	s.spawn(s.randomizer.Next())
	return s, nil
}

// spawn は kind のピースを出現位置に配置します。
// 配置できない場合、または境界行より上に固定タイルが残っている場合はゲームオーバーです。
func (s *GameState) spawn(kind tetris.PieceKind) bool {
	piece, ok := tetris.SpawnPiece(s.grid, kind)
	if !ok {
		s.piece = nil
		s.endGame(fmt.Sprintf("%s をスポーンできません", kind))
		return false
	}
	s.piece = piece
	s.epoch = 0
	s.touch()

	if s.grid.AnyLockedAtOrAbove(s.grid.Dimensions().BoundaryRow()) {
		s.endGame("境界行より上に固定タイルがあります")
		return false
	}
	return true
}

func (s *GameState) endGame(reason string) {
	if s.over {
		return
	}
	s.over = true
	s.touch()
	log.Printf("[GameState] Game Over (%s): Level %d, Lines Cleared: %d", reason, s.level, s.linesCleared)
}

func (s *GameState) touch() {
	s.revision++
}

func (s *GameState) playable() bool {
	return !s.over && s.piece != nil
}

// Tick はゲームを1エポック進めます。
// ピースが床か固定タイルに接していればロックしてラインを消し、次のピースを出現させます。
// そうでなければエポックを数え、レベルに応じた閾値に達したら1行落下させます。
// 落下が拒否されてもここではロックしません（次の Tick で接地として扱われます）。
func (s *GameState) Tick() {
	if !s.playable() {
		return
	}
	if s.piece.Resting() {
		s.lockPiece()
		return
	}

	s.epoch++
	if s.epoch < GravityThreshold(s.level) {
		return
	}
	s.epoch = 0
	if s.piece.MoveBy(0, 1) {
		s.touch()
	}
}

// lockPiece はピースの固定後の処理をすべて行います。
// ラインクリア判定、レベルアップ、次のピース生成、ゲームオーバー判定が含まれます。
func (s *GameState) lockPiece() {
	s.piece.Lock()
	s.piece = nil

	cleared := s.grid.ClearAndCompact()
	s.lastCleared = cleared
	s.linesCleared += cleared
	s.level = LevelForLines(s.startLevel, s.linesCleared)
	s.holdUsed = false
	s.touch()

	s.spawn(s.randomizer.Next())
}

// HardDrop はピースを接地するまで落下させます。ロックは次の Tick で行われます。
// ループは盤面の高さで打ち切られます。
//
// Returns:
//   int: 落下した行数
func (s *GameState) HardDrop() int {
	if !s.playable() {
		return 0
	}
	rows := 0
	for i := 0; i < s.grid.Dimensions().Height; i++ {
		if !s.piece.MoveBy(0, 1) {
			break
		}
		rows++
	}
	if rows > 0 {
		s.epoch = 0
		s.touch()
	}
	return rows
}

// SoftDrop はピースを1行落下させ、落下タイマーをリセットします。
func (s *GameState) SoftDrop() bool {
	if !s.playable() || !s.piece.MoveBy(0, 1) {
		return false
	}
	s.epoch = 0
	s.touch()
	return true
}

// Hold は現在のピースをホールドします。ロックされるまでに1回だけ使えます。
// ホールドが空なら次のピースを、そうでなければホールド中の種類を出現位置から出現させます。
// 出現できなければゲームオーバーになります。
func (s *GameState) Hold() bool {
	if !s.playable() || s.holdUsed {
		return false
	}

	current := s.piece.Kind()
	s.piece.Release()
	s.piece = nil
	s.holdUsed = true

	next := s.held
	if !s.hasHeld {
		next = s.randomizer.Next()
	}
	s.held, s.hasHeld = current, true
	s.touch()

	s.spawn(next)
	return true
}

func (s *GameState) command(move func(p *tetris.Piece) bool) bool {
	if !s.playable() || !move(s.piece) {
		return false
	}
	s.touch()
	return true
}

func (s *GameState) MoveLeft() bool {
	return s.command(func(p *tetris.Piece) bool { return p.MoveBy(-1, 0) })
}

func (s *GameState) MoveRight() bool {
	return s.command(func(p *tetris.Piece) bool { return p.MoveBy(1, 0) })
}

func (s *GameState) RotateRight() bool {
	return s.command(func(p *tetris.Piece) bool { return p.Rotate(tetris.DirectionRight) })
}

func (s *GameState) RotateLeft() bool {
	return s.command(func(p *tetris.Piece) bool { return p.Rotate(tetris.DirectionLeft) })
}

func (s *GameState) IsOver() bool      { return s.over }
func (s *GameState) Level() int        { return s.level }
func (s *GameState) LinesCleared() int { return s.linesCleared }
func (s *GameState) LastCleared() int  { return s.lastCleared }
func (s *GameState) Revision() uint64  { return s.revision }

func (s *GameState) Dimensions() tetris.Dimensions {
	return s.grid.Dimensions()
}

// GridTiles は描画用に盤面上の全タイルを返します。
func (s *GameState) GridTiles() []tetris.Tile {
	return s.grid.Tiles()
}

// ActivePiece は操作中のピースの種類とセルを返します。ピースがなければ ok は false です。
func (s *GameState) ActivePiece() (kind tetris.PieceKind, cells [4]tetris.Cell, ok bool) {
	if s.piece == nil {
		return kind, cells, false
	}
	return s.piece.Kind(), s.piece.Cells(), true
}

// NextKind は次に出現するピースの種類です。
func (s *GameState) NextKind() tetris.PieceKind {
	return s.randomizer.Peek()
}

// HeldKind はホールド中のピースの種類です。
func (s *GameState) HeldKind() (tetris.PieceKind, bool) {
	return s.held, s.hasHeld
}

// HoldAvailable は現在のピースでまだホールドできるかを返します。
func (s *GameState) HoldAvailable() bool {
	return s.playable() && !s.holdUsed
}

// TileView はスナップショット内の1タイルです。
type TileView struct {
	Col    int              `json:"col"`
	Row    int              `json:"row"`
	Kind   tetris.PieceKind `json:"kind"`
	Active bool             `json:"active"`
}

// Snapshot はレンダラー向けの不変なゲーム状態です。JSON でクライアントに送信されます。
// Tiles にはバッファ行のタイルも含まれます。描画側は visible_height で表示行を決めます。
type Snapshot struct {
	ID            string            `json:"id,omitempty"`
	Status        string            `json:"status,omitempty"`
	Width         int               `json:"width"`
	Height        int               `json:"height"`
	VisibleHeight int               `json:"visible_height"`
	Tiles         []TileView        `json:"tiles"`
	Level         int               `json:"level"`
	LinesCleared  int               `json:"lines_cleared"`
	LastCleared   int               `json:"last_cleared"`
	Next          tetris.PieceKind  `json:"next"`
	Held          *tetris.PieceKind `json:"held"`
	IsOver        bool              `json:"is_over"`
	Revision      uint64            `json:"revision"`
}

// Snapshot は現在の状態のコピーを作ります。
func (s *GameState) Snapshot() Snapshot {
	d := s.grid.Dimensions()
	tiles := s.grid.Tiles()
	views := make([]TileView, 0, len(tiles))
	for _, t := range tiles {
		views = append(views, TileView{Col: t.Position.Col, Row: t.Position.Row, Kind: t.Kind, Active: t.Active})
	}

	snap := Snapshot{
		Width:         d.Width,
		Height:        d.Height,
		VisibleHeight: d.VisibleHeight,
		Tiles:         views,
		Level:         s.level,
		LinesCleared:  s.linesCleared,
		LastCleared:   s.lastCleared,
		Next:          s.NextKind(),
		IsOver:        s.over,
		Revision:      s.revision,
	}
	if s.hasHeld {
		held := s.held
		snap.Held = &held
	}
	return snap
}
