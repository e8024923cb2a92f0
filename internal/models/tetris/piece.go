package tetris

// Piece はプレイヤーが操作中のテトリミノです。
// 盤面上の自分の4つのタイルをハンドルで所有し、ロック時に所有権を Grid に渡します。
type Piece struct {
	grid        *Grid
	kind        PieceKind
	position    Cell
	orientation Orientation
	cells       [4]Cell
	handles     []TileHandle
	done        bool // ロック済み、またはホールドで盤面から外された
}

// NewPiece は指定位置・向きにピースを配置します。
// 配置先が盤面外か固定タイルと重なる場合は false を返し、盤面は変更しません。
func NewPiece(g *Grid, kind PieceKind, pos Cell, o Orientation) (*Piece, bool) {
	p := &Piece{grid: g, kind: kind, handles: make([]TileHandle, 0, 4)}
	if !p.TryMoveOrRotate(pos, o) {
		return nil, false
	}
	return p, true
}

// SpawnPiece は種類ごとの出現位置・向きにピースを配置します。
func SpawnPiece(g *Grid, kind PieceKind) (*Piece, bool) {
	return NewPiece(g, kind, kind.SpawnPosition(g.Dimensions()), kind.SpawnOrientation())
}

// TryMoveOrRotate は移動・回転を試みます。
// 4つの移動先をすべて検証してから、古いタイルの削除・新しいタイルの追加を一度に行います。
// 一つでも盤面外か固定タイルと重なれば何も変更せず false を返します。
//
// Parameters:
//   pos : 新しい基準点
//   o   : 新しい向き
// Returns:
//   bool: 移動・回転できた場合は true
func (p *Piece) TryMoveOrRotate(pos Cell, o Orientation) bool {
	if p.done {
		return false
	}
	var cells [4]Cell
	for i, off := range p.kind.Offsets(o) {
		c := pos.Add(off)
		if !p.grid.Contains(c) || p.grid.Occupies(c) {
			return false
		}
		cells[i] = c
	}

	for _, h := range p.handles {
		p.grid.Remove(h)
	}
	p.handles = p.handles[:0]
	for _, c := range cells {
		p.handles = append(p.handles, p.grid.PlaceActive(c, p.kind))
	}
	p.position = pos
	p.orientation = o
	p.cells = cells
	assertInvariant(len(p.handles) == 4, "piece owns %d tiles", len(p.handles))
	return true
}

// Move は向きを変えずに移動します。
func (p *Piece) Move(pos Cell) bool {
	return p.TryMoveOrRotate(pos, p.orientation)
}

// MoveBy は現在位置から相対的に移動します。
func (p *Piece) MoveBy(dCol, dRow int) bool {
	return p.Move(Cell{Col: p.position.Col + dCol, Row: p.position.Row + dRow})
}

// Rotate は90度回転します。壁蹴りは行わず、衝突する回転は単に失敗します。
func (p *Piece) Rotate(dir Direction) bool {
	return p.TryMoveOrRotate(p.position, p.orientation.Rotated(dir))
}

// TouchesFloor はいずれかのブロックが最下段にあるかを返します。
func (p *Piece) TouchesFloor() bool {
	floor := p.grid.Dimensions().Height - 1
	for _, c := range p.cells {
		if c.Row >= floor {
			return true
		}
	}
	return false
}

// TouchesLockedTile はいずれかのブロックの真下に固定タイルがあるかを返します。
func (p *Piece) TouchesLockedTile() bool {
	for _, c := range p.cells {
		if p.grid.Occupies(c.Below()) {
			return true
		}
	}
	return false
}

// Resting は TouchesFloor または TouchesLockedTile です。
func (p *Piece) Resting() bool {
	return p.TouchesFloor() || p.TouchesLockedTile()
}

// Lock はピースを盤面に固定します。以降このピースはタイルを持たず、操作もできません。
func (p *Piece) Lock() {
	if p.done {
		return
	}
	assertInvariant(len(p.handles) == 4, "locking a piece that owns %d tiles", len(p.handles))
	for _, h := range p.handles {
		p.grid.Lock(h)
	}
	p.handles = nil
	p.done = true
}

// Release は固定せずにタイルを盤面から取り除きます（ホールド用）。
func (p *Piece) Release() {
	if p.done {
		return
	}
	for _, h := range p.handles {
		p.grid.Remove(h)
	}
	p.handles = nil
	p.done = true
}

func (p *Piece) Kind() PieceKind          { return p.kind }
func (p *Piece) Position() Cell           { return p.position }
func (p *Piece) Orientation() Orientation { return p.orientation }

// Cells は現在占有している4つのセルです。
func (p *Piece) Cells() [4]Cell { return p.cells }

// Active はまだ操作可能な（ロックもホールドもされていない）ピースかを返します。
func (p *Piece) Active() bool { return !p.done }
