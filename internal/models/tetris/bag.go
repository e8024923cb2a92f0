package tetris

import "math/rand"

// Randomizer は次に出現するテトリミノの種類を無限に供給します。
type Randomizer interface {
	// Next は次の種類を取り出します。
	Next() PieceKind
	// Peek は取り出さずに次の種類を返します（ネクスト表示用）。
	Peek() PieceKind
}

// Bag は全種類を1つずつ入れた袋をシャッフルして順に取り出すランダマイザです。
// 袋が空になったら新しくシャッフルした全種類で補充します。
// 袋の境界をまたいだ連続（前の袋の最後と次の袋の最初が同じ）は調整しません。
type Bag struct {
	rng     *rand.Rand
	kinds   []PieceKind
	pending []PieceKind
}

// NewBag は rng を使うバッグを作成します。kinds を省略すると全7種類を使います。
func NewBag(rng *rand.Rand, kinds ...PieceKind) *Bag {
	if len(kinds) == 0 {
		kinds = AllKinds()
	}
	return &Bag{
		rng:   rng,
		kinds: append([]PieceKind(nil), kinds...),
	}
}

// NewSeededBag は seed から乱数生成器を作ってバッグを返します。
func NewSeededBag(seed int64) *Bag {
	return NewBag(rand.New(rand.NewSource(seed)))
}

// shuffleKinds は kinds をその場でシャッフルし、同じスライスを返します。
func shuffleKinds(rng *rand.Rand, kinds []PieceKind) []PieceKind {
	rng.Shuffle(len(kinds), func(i, j int) {
		kinds[i], kinds[j] = kinds[j], kinds[i]
	})
	return kinds
}

func (b *Bag) refill() {
	b.pending = shuffleKinds(b.rng, append(b.pending[:0], b.kinds...))
}

func (b *Bag) Next() PieceKind {
	if len(b.pending) == 0 {
		b.refill()
	}
	kind := b.pending[0]
	b.pending = b.pending[1:]
	return kind
}

func (b *Bag) Peek() PieceKind {
	if len(b.pending) == 0 {
		b.refill()
	}
	return b.pending[0]
}

// Remaining は現在の袋に残っている数です。
func (b *Bag) Remaining() int {
	return len(b.pending)
}

// Size は1袋に入る種類数です。
func (b *Bag) Size() int {
	return len(b.kinds)
}
