package tetris

import (
	"errors"
	"fmt"

	"github.com/kamstrup/intmap"
)

const (
	BoardWidth    = 10 // テトリスボードの幅
	BoardHeight   = 40 // 見えないバッファ行を含むボードの高さ
	VisibleHeight = 20 // 表示される行数（下から数える）
)

// Dimensions は盤面サイズです。Grid や Piece にグローバル定数ではなく明示的に渡します。
type Dimensions struct {
	Width         int `json:"width"`
	Height        int `json:"height"`
	VisibleHeight int `json:"visible_height"`
}

// DefaultDimensions は 10x40 (表示20行) の標準サイズを返します。
func DefaultDimensions() Dimensions {
	return Dimensions{Width: BoardWidth, Height: BoardHeight, VisibleHeight: VisibleHeight}
}

// Validate はピースを出現させられるだけの大きさがあるかを確認します。
func (d Dimensions) Validate() error {
	switch {
	case d.Width < 4:
		return fmt.Errorf("width must be at least 4, got %d", d.Width)
	case d.VisibleHeight < 4:
		return fmt.Errorf("visible height must be at least 4, got %d", d.VisibleHeight)
	case d.Height < d.VisibleHeight+4:
		return errors.New("height must leave at least 4 buffer rows above the visible area")
	}
	return nil
}

// BoundaryRow は表示領域とバッファ領域の境界行です。
// この行以上（行番号が小さい側）に固定タイルがあるとゲームオーバーです。
func (d Dimensions) BoundaryRow() int {
	return d.Height - d.VisibleHeight - 1
}

// FirstVisibleRow は描画される最初の行です。
func (d Dimensions) FirstVisibleRow() int {
	return d.Height - d.VisibleHeight
}

// Contains はセルが盤面内かどうかを返します。
func (d Dimensions) Contains(c Cell) bool {
	return c.Col >= 0 && c.Col < d.Width && c.Row >= 0 && c.Row < d.Height
}

func (d Dimensions) index(c Cell) int {
	return c.Row*d.Width + c.Col
}

// Cell は盤面上の座標です。Row 0 が最上段、Height-1 が床です。
type Cell struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// Add はオフセットを足したセルを返します。
func (c Cell) Add(off Offset) Cell {
	return Cell{Col: c.Col + off.DCol, Row: c.Row + off.DRow}
}

// Below は一つ下のセルを返します。
func (c Cell) Below() Cell {
	return Cell{Col: c.Col, Row: c.Row + 1}
}

// Tile は盤面上の1マスのブロックです。
// Active が true のものは操作中のピースに属し、衝突判定の障害物になりません。
type Tile struct {
	Position Cell      `json:"position"`
	Kind     PieceKind `json:"kind"`
	Active   bool      `json:"active"`
}

// TileHandle は Grid のタイル格納領域へのインデックスです。
// ピースはこのハンドルで自分のタイルを直接指し示します。
type TileHandle int32

type tileSlot struct {
	tile Tile
	used bool
}

// Grid は配置されたタイルを所有し、占有判定・行の検査・ラインクリアを行います。
type Grid struct {
	dims   Dimensions
	slots  []tileSlot
	free   []TileHandle
	locked *intmap.Map[int, TileHandle] // row*Width+col -> 固定タイル
}

// NewGrid は空の盤面を作成します。d は Validate 済みである必要があります。
func NewGrid(d Dimensions) *Grid {
	if err := d.Validate(); err != nil {
		panic(fmt.Sprintf("tetris: invalid dimensions: %v", err))
	}
	return &Grid{
		dims:   d,
		slots:  make([]tileSlot, 0, d.Width*d.VisibleHeight),
		locked: intmap.New[int, TileHandle](d.Width * d.VisibleHeight),
	}
}

// Dimensions は盤面サイズを返します。
func (g *Grid) Dimensions() Dimensions {
	return g.dims
}

// Contains はセルが盤面内かどうかを返します。
func (g *Grid) Contains(c Cell) bool {
	return g.dims.Contains(c)
}

// Occupies は固定タイルがそのセルにある場合のみ true を返します。
// 操作中のピースのタイルは数えません（ピースが自分自身と衝突しないように）。
func (g *Grid) Occupies(c Cell) bool {
	if !g.dims.Contains(c) {
		return false
	}
	_, ok := g.locked.Get(g.dims.index(c))
	return ok
}

// RowIsFull は指定行の全列に固定タイルがあるかを返します。
func (g *Grid) RowIsFull(row int) bool {
	if row < 0 || row >= g.dims.Height {
		return false
	}
	for col := 0; col < g.dims.Width; col++ {
		if !g.Occupies(Cell{Col: col, Row: row}) {
			return false
		}
	}
	return true
}

// ClearAndCompact は揃ったラインを消し、上の行を落とします。
// 最下段から上に向かって一度だけ走査し、それまでに消えた行数だけ各行を下げます。
// 行は必ず降順で処理します（ずらし済みの行を古いオフセットで再度ずらさないため）。
//
// Returns:
//   int: クリアされたライン数
func (g *Grid) ClearAndCompact() int {
	linesBelow := 0
	for row := g.dims.Height - 1; row >= 0; row-- {
		if g.RowIsFull(row) {
			g.deleteRow(row)
			linesBelow++
			continue
		}
		if linesBelow > 0 {
			g.moveRowDown(row, linesBelow)
		}
	}
	return linesBelow
}

func (g *Grid) deleteRow(row int) {
	for col := 0; col < g.dims.Width; col++ {
		key := g.dims.index(Cell{Col: col, Row: row})
		if h, ok := g.locked.Get(key); ok {
			g.locked.Del(key)
			g.release(h)
		}
	}
}

func (g *Grid) moveRowDown(row, offset int) {
	for col := 0; col < g.dims.Width; col++ {
		from := g.dims.index(Cell{Col: col, Row: row})
		h, ok := g.locked.Get(from)
		if !ok {
			continue
		}
		dest := Cell{Col: col, Row: row + offset}
		destKey := g.dims.index(dest)
		_, taken := g.locked.Get(destKey)
		assertInvariant(!taken, "compaction moved %v onto a locked tile", dest)
		g.locked.Del(from)
		g.slots[h].tile.Position = dest
		g.locked.Put(destKey, h)
	}
}

// PlaceActive は操作中ピースのタイルを追加し、そのハンドルを返します。
func (g *Grid) PlaceActive(c Cell, kind PieceKind) TileHandle {
	assertInvariant(g.dims.Contains(c), "active tile outside the grid at %v", c)
	return g.alloc(Tile{Position: c, Kind: kind, Active: true})
}

// PlaceLocked は固定タイルを直接配置します（初期盤面やテスト用）。
// 盤面外、または既に固定タイルがある場合は false を返します。
func (g *Grid) PlaceLocked(c Cell, kind PieceKind) bool {
	if !g.dims.Contains(c) || g.Occupies(c) {
		return false
	}
	h := g.alloc(Tile{Position: c, Kind: kind})
	g.locked.Put(g.dims.index(c), h)
	return true
}

// Remove はハンドルが指すタイルを盤面から取り除きます。
func (g *Grid) Remove(h TileHandle) {
	s := g.slot(h)
	if !s.tile.Active {
		g.locked.Del(g.dims.index(s.tile.Position))
	}
	g.release(h)
}

// Lock は操作中のタイルを固定タイルに変えます。ここで所有権が Grid に移ります。
func (g *Grid) Lock(h TileHandle) {
	s := g.slot(h)
	assertInvariant(s.tile.Active, "tile %d is already locked", h)
	key := g.dims.index(s.tile.Position)
	_, taken := g.locked.Get(key)
	assertInvariant(!taken, "duplicate locked tile at %v", s.tile.Position)
	s.tile.Active = false
	g.locked.Put(key, h)
}

// Tile はハンドルが指すタイルのコピーを返します。
func (g *Grid) Tile(h TileHandle) Tile {
	return g.slot(h).tile
}

// Tiles は描画用に全タイル（固定・操作中の両方）のコピーを返します。
func (g *Grid) Tiles() []Tile {
	tiles := make([]Tile, 0, g.locked.Len()+4)
	for _, s := range g.slots {
		if s.used {
			tiles = append(tiles, s.tile)
		}
	}
	return tiles
}

// LockedCount は固定タイルの数を返します。
func (g *Grid) LockedCount() int {
	return g.locked.Len()
}

// AnyLockedAtOrAbove は row 以上（行番号 <= row）のどこかに固定タイルがあるかを返します。
func (g *Grid) AnyLockedAtOrAbove(row int) bool {
	for r := 0; r <= row && r < g.dims.Height; r++ {
		for col := 0; col < g.dims.Width; col++ {
			if g.Occupies(Cell{Col: col, Row: r}) {
				return true
			}
		}
	}
	return false
}

func (g *Grid) alloc(t Tile) TileHandle {
	if n := len(g.free); n > 0 {
		h := g.free[n-1]
		g.free = g.free[:n-1]
		g.slots[h] = tileSlot{tile: t, used: true}
		return h
	}
	g.slots = append(g.slots, tileSlot{tile: t, used: true})
	return TileHandle(len(g.slots) - 1)
}

func (g *Grid) release(h TileHandle) {
	g.slots[h] = tileSlot{}
	g.free = append(g.free, h)
}

func (g *Grid) slot(h TileHandle) *tileSlot {
	assertInvariant(h >= 0 && int(h) < len(g.slots) && g.slots[h].used, "unknown tile handle %d", h)
	return &g.slots[h]
}
