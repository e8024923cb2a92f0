package render

import (
	models "github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/models/tetris"
	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/services/tetris"
)

// Cell は描画用に平らにした 1 マス分の情報です。
type Cell struct {
	Filled bool
	Kind   models.PieceKind
	Active bool
}

// Board はスナップショットのうち画面に映る行だけを取り出したものです。
// Cells[0] が画面の一番上の行になります。
type Board struct {
	Width  int
	Height int
	Cells  [][]Cell
}

// VisibleBoard はスナップショットから可視領域の盤面を作ります。
// バッファ行にあるタイルは捨てられます。
//
// Parameters:
//   snap : ゲームのスナップショット
// Returns:
//   Board: 可視行だけの盤面
func VisibleBoard(snap tetris.Snapshot) Board {
	first := snap.Height - snap.VisibleHeight
	board := Board{
		Width:  snap.Width,
		Height: snap.VisibleHeight,
		Cells:  make([][]Cell, snap.VisibleHeight),
	}
	for i := range board.Cells {
		board.Cells[i] = make([]Cell, snap.Width)
	}
	for _, tile := range snap.Tiles {
		row := tile.Row - first
		if row < 0 || row >= board.Height || tile.Col < 0 || tile.Col >= board.Width {
			continue
		}
		board.Cells[row][tile.Col] = Cell{Filled: true, Kind: tile.Kind, Active: tile.Active}
	}
	return board
}

// HiddenActiveTiles はアクティブピースのうちバッファ行にあって見えないタイルの数を返します。
// 出現直後のピースはこれが 0 より大きくなります。
func HiddenActiveTiles(snap tetris.Snapshot) int {
	first := snap.Height - snap.VisibleHeight
	n := 0
	for _, tile := range snap.Tiles {
		if tile.Active && tile.Row < first {
			n++
		}
	}
	return n
}

// KindLabel はホールドや NEXT 表示用のラベルを返します。空なら "-" です。
func KindLabel(kind *models.PieceKind) string {
	if kind == nil {
		return "-"
	}
	return kind.String()
}
