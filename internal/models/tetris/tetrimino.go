package tetris

import "fmt"

// PieceKind はテトリミノの種類を表します。
// ロック後のタイルでは色（識別）のためだけに使われます。
type PieceKind int

const (
	KindI PieceKind = iota // 0: I-ミノ (シアン)
	KindO                  // 1: O-ミノ (黄色)
	KindT                  // 2: T-ミノ (紫)
	KindS                  // 3: S-ミノ (緑)
	KindZ                  // 4: Z-ミノ (赤)
	KindJ                  // 5: J-ミノ (青)
	KindL                  // 6: L-ミノ (オレンジ)
)

// AllKinds は全種類のテトリミノを定義順で返します。
// 呼び出し側で並べ替えても良いように毎回新しいスライスを返します。
func AllKinds() []PieceKind {
	return []PieceKind{KindI, KindO, KindT, KindS, KindZ, KindJ, KindL}
}

var kindNames = [...]string{"I", "O", "T", "S", "Z", "J", "L"}

// Valid は定義済みの種類かどうかを返します。
func (k PieceKind) Valid() bool {
	return k >= KindI && k <= KindL
}

func (k PieceKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("PieceKind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText は JSON などで "I", "O" のような1文字表記にするために使われます。
func (k PieceKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("不明なテトリミノの種類です: %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText は1文字表記からPieceKindを復元します。
func (k *PieceKind) UnmarshalText(text []byte) error {
	parsed, ok := ParsePieceKind(string(text))
	if !ok {
		return fmt.Errorf("不明なテトリミノの種類です: %q", text)
	}
	*k = parsed
	return nil
}

// ParsePieceKind は文字列のテトリミノタイプ（"I", "O", "T"など）をPieceKindに変換します。
func ParsePieceKind(s string) (PieceKind, bool) {
	for i, name := range kindNames {
		if name == s {
			return PieceKind(i), true
		}
	}
	return KindI, false
}

// Orientation はピースの回転状態です。Up → Right → Down → Left → Up の順に循環します。
type Orientation int

const (
	Up Orientation = iota
	Right
	Down
	Left
)

var orientationNames = [...]string{"up", "right", "down", "left"}

func (o Orientation) String() string {
	if o < Up || o > Left {
		return fmt.Sprintf("Orientation(%d)", int(o))
	}
	return orientationNames[o]
}

// Direction は回転方向です。
type Direction int

const (
	DirectionRight Direction = iota // 時計回り
	DirectionLeft                   // 反時計回り
)

// Rotated は指定方向に90度回転した後の向きを返します。
func (o Orientation) Rotated(dir Direction) Orientation {
	if dir == DirectionLeft {
		return (o + 3) % 4 // 負の値にならないように +3
	}
	return (o + 1) % 4
}

// Offset はピースの基準点からの相対座標です。DRow は下向きが正です。
type Offset struct {
	DCol int
	DRow int
}

// tetriminoShapes は各PieceKindの各回転状態におけるブロックの相対座標を定義します。
// [PieceKind][Orientation][BlockIndex]
// 回転は行列計算ではなく固定テーブルで表現します（Oミノの回転誤差を避けるため）。
var tetriminoShapes = map[PieceKind][4][4]Offset{
	KindI: {
		Up:    {{-1, 1}, {0, 1}, {1, 1}, {2, 1}},
		Right: {{1, -1}, {1, 0}, {1, 1}, {1, 2}},
		Down:  {{-1, 0}, {0, 0}, {1, 0}, {2, 0}},
		Left:  {{0, -1}, {0, 0}, {0, 1}, {0, 2}},
	},
	KindO: { // 全ての回転で同じ
		Up:    {{0, 0}, {1, 0}, {0, 1}, {1, 1}},
		Right: {{0, 0}, {1, 0}, {0, 1}, {1, 1}},
		Down:  {{0, 0}, {1, 0}, {0, 1}, {1, 1}},
		Left:  {{0, 0}, {1, 0}, {0, 1}, {1, 1}},
	},
	KindT: {
		Up:    {{1, 0}, {0, 1}, {1, 1}, {2, 1}},
		Right: {{1, 0}, {1, 1}, {2, 1}, {1, 2}},
		Down:  {{0, 1}, {1, 1}, {2, 1}, {1, 2}},
		Left:  {{0, 1}, {1, 0}, {1, 1}, {1, 2}},
	},
	KindS: {
		Up:    {{1, 0}, {2, 0}, {0, 1}, {1, 1}},
		Right: {{1, 0}, {1, 1}, {2, 1}, {2, 2}},
		Down:  {{1, 1}, {2, 1}, {0, 2}, {1, 2}},
		Left:  {{0, 0}, {0, 1}, {1, 1}, {1, 2}},
	},
	KindZ: {
		Up:    {{0, 0}, {1, 0}, {1, 1}, {2, 1}},
		Right: {{2, 0}, {1, 1}, {2, 1}, {1, 2}},
		Down:  {{0, 1}, {1, 1}, {1, 2}, {2, 2}},
		Left:  {{1, 0}, {0, 1}, {1, 1}, {0, 2}},
	},
	KindJ: {
		Up:    {{0, 0}, {0, 1}, {1, 1}, {2, 1}},
		Right: {{1, 0}, {2, 0}, {1, 1}, {1, 2}},
		Down:  {{0, 1}, {1, 1}, {2, 1}, {2, 2}},
		Left:  {{1, 0}, {1, 1}, {0, 2}, {1, 2}},
	},
	KindL: {
		Up:    {{2, 0}, {0, 1}, {1, 1}, {2, 1}},
		Right: {{1, 0}, {1, 1}, {1, 2}, {2, 2}},
		Down:  {{0, 1}, {1, 1}, {2, 1}, {0, 2}},
		Left:  {{0, 0}, {1, 0}, {1, 1}, {1, 2}},
	},
}

// Offsets は指定された向きでのブロックの相対座標を返します。
func (k PieceKind) Offsets(o Orientation) [4]Offset {
	return tetriminoShapes[k][o]
}

// SpawnOrientation は出現時の向きです。O と I は Down、それ以外は Up で出現します。
func (k PieceKind) SpawnOrientation() Orientation {
	switch k {
	case KindO, KindI:
		return Down
	default:
		return Up
	}
}

// SpawnPosition は出現時の基準点を返します。
// 横方向は中央寄せ、縦方向は一番下のブロックが境界行のひとつ上に来る位置です。
//
// Parameters:
//   d : 盤面サイズ
// Returns:
//   Cell: ピースの基準点
func (k PieceKind) SpawnPosition(d Dimensions) Cell {
	offsets := k.Offsets(k.SpawnOrientation())
	minCol, maxCol, maxRow := offsets[0].DCol, offsets[0].DCol, offsets[0].DRow
	for _, off := range offsets[1:] {
		minCol = min(minCol, off.DCol)
		maxCol = max(maxCol, off.DCol)
		maxRow = max(maxRow, off.DRow)
	}
	span := maxCol - minCol + 1
	return Cell{
		Col: (d.Width-span)/2 - minCol,
		Row: d.BoundaryRow() - 1 - maxRow,
	}
}
