package tetris

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/models/tetris"
)

// scriptedRandomizer は決められた順番で種類を繰り返し返すテスト用のランダマイザです。
type scriptedRandomizer struct {
	kinds []tetris.PieceKind
	next  int
}

func scripted(kinds ...tetris.PieceKind) *scriptedRandomizer {
	return &scriptedRandomizer{kinds: kinds}
}

func (r *scriptedRandomizer) Next() tetris.PieceKind {
	k := r.Peek()
	r.next++
	return k
}

func (r *scriptedRandomizer) Peek() tetris.PieceKind {
	return r.kinds[r.next%len(r.kinds)]
}

func newTestState(t *testing.T, d tetris.Dimensions, kinds ...tetris.PieceKind) *GameState {
	t.Helper()
	state, err := NewGameState(GameSettings{Dimensions: d, StartLevel: 1, Randomizer: scripted(kinds...)})
	require.NoError(t, err)
	return state
}

func activeCells(t *testing.T, s *GameState) [4]tetris.Cell {
	t.Helper()
	_, cells, ok := s.ActivePiece()
	require.True(t, ok, "no active piece")
	return cells
}

func countTiles(s *GameState) (active, locked int) {
	for _, tile := range s.GridTiles() {
		if tile.Active {
			active++
		} else {
			locked++
		}
	}
	return active, locked
}

// dropAndLock はハードドロップしてから1 Tick 進め、ピースをロックさせます。
func dropAndLock(s *GameState) {
	s.HardDrop()
	s.Tick()
}

func TestNewGameState(t *testing.T) {
	state := newTestState(t, tetris.DefaultDimensions(), tetris.KindT, tetris.KindO)

	assert.False(t, state.IsOver())
	assert.Equal(t, 1, state.Level())
	assert.Zero(t, state.LinesCleared())
	assert.Equal(t, tetris.KindO, state.NextKind())
	_, held := state.HeldKind()
	assert.False(t, held)
	assert.True(t, state.HoldAvailable())

	kind, cells, ok := state.ActivePiece()
	require.True(t, ok)
	assert.Equal(t, tetris.KindT, kind)
	for _, c := range cells {
		assert.Less(t, c.Row, state.Dimensions().BoundaryRow())
	}
	active, locked := countTiles(state)
	assert.Equal(t, 4, active)
	assert.Zero(t, locked)
}

func TestNewGameState_InvalidSettings(t *testing.T) {
	_, err := NewGameState(GameSettings{Dimensions: tetris.Dimensions{Width: 2, Height: 10, VisibleHeight: 4}, StartLevel: 1})
	assert.Error(t, err)

	settings := DefaultGameSettings()
	settings.StartLevel = 0
	_, err = NewGameState(settings)
	assert.Error(t, err)
}

func TestNewGameState_SeedIsReproducible(t *testing.T) {
	settings := DefaultGameSettings()
	settings.Seed = 77
	a, err := NewGameState(settings)
	require.NoError(t, err)
	b, err := NewGameState(settings)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		ka, _, _ := a.ActivePiece()
		kb, _, _ := b.ActivePiece()
		require.Equal(t, ka, kb)
		dropAndLock(a)
		dropAndLock(b)
	}
}

// TestTick_GravityFollowsThreshold はレベル1では20エポック目で初めて1行落下することを確認します。
func TestTick_GravityFollowsThreshold(t *testing.T) {
	state := newTestState(t, tetris.DefaultDimensions(), tetris.KindO)
	start := activeCells(t, state)
	rev := state.Revision()

	for i := 1; i < GravityThreshold(1); i++ {
		state.Tick()
	}
	assert.Equal(t, start, activeCells(t, state))
	assert.Equal(t, rev, state.Revision())

	state.Tick()
	moved := activeCells(t, state)
	for i := range start {
		assert.Equal(t, start[i].Row+1, moved[i].Row)
		assert.Equal(t, start[i].Col, moved[i].Col)
	}
	assert.Greater(t, state.Revision(), rev)
}

// TestHardDrop_DoesNotLock はハードドロップが接地させるだけで、ロックは次の Tick で行われることを確認します。
func TestHardDrop_DoesNotLock(t *testing.T) {
	d := tetris.DefaultDimensions()
	state := newTestState(t, d, tetris.KindO, tetris.KindT)

	rows := state.HardDrop()
	assert.Equal(t, d.Height-1-(d.BoundaryRow()-1), rows)
	assert.Zero(t, state.HardDrop())

	active, locked := countTiles(state)
	assert.Equal(t, 4, active)
	assert.Zero(t, locked)
	for _, c := range activeCells(t, state) {
		assert.GreaterOrEqual(t, c.Row, d.Height-2)
	}

	// 接地していても次の Tick までは横移動できる
	assert.True(t, state.MoveLeft())

	state.Tick()
	active, locked = countTiles(state)
	assert.Equal(t, 4, active)
	assert.Equal(t, 4, locked)
	kind, _, _ := state.ActivePiece()
	assert.Equal(t, tetris.KindT, kind)
}

func TestSoftDrop(t *testing.T) {
	state := newTestState(t, tetris.DefaultDimensions(), tetris.KindO)
	start := activeCells(t, state)

	require.True(t, state.SoftDrop())
	assert.Equal(t, start[0].Row+1, activeCells(t, state)[0].Row)

	// ソフトドロップでエポックがリセットされるので、次の落下まで再び閾値分かかる
	for i := 1; i < GravityThreshold(1); i++ {
		state.Tick()
	}
	assert.Equal(t, start[0].Row+1, activeCells(t, state)[0].Row)
}

// TestLineClear_LevelProgression は幅4の盤面でOミノ2つずつ並べてラインを消し、
// 5ラインごとにレベルが上がることを確認します。
func TestLineClear_LevelProgression(t *testing.T) {
	d := tetris.Dimensions{Width: 4, Height: 12, VisibleHeight: 6}
	state := newTestState(t, d, tetris.KindO)

	for round := 1; round <= 3; round++ {
		require.True(t, state.MoveLeft())
		dropAndLock(state)
		require.True(t, state.MoveRight())
		dropAndLock(state)

		assert.Equal(t, 2, state.LastCleared())
		assert.Equal(t, 2*round, state.LinesCleared())
		_, locked := countTiles(state)
		assert.Zero(t, locked, "round %d", round)
	}
	assert.Equal(t, 2, state.Level())
	assert.False(t, state.IsOver())
}

func TestGameOver_LockedTileAtBoundary(t *testing.T) {
	d := tetris.DefaultDimensions()
	state := newTestState(t, d, tetris.KindO)
	require.True(t, state.grid.PlaceLocked(tetris.Cell{Col: 0, Row: d.BoundaryRow()}, tetris.KindI))

	dropAndLock(state)

	assert.True(t, state.IsOver())
	_, _, ok := state.ActivePiece()
	assert.True(t, ok, "spawn succeeded; the new piece is still shown")

	rev := state.Revision()
	assert.False(t, state.MoveLeft())
	assert.False(t, state.RotateRight())
	assert.False(t, state.Hold())
	assert.Zero(t, state.HardDrop())
	assert.False(t, ApplyPlayerInput(state, ActionSoftDrop))
	state.Tick()
	assert.Equal(t, rev, state.Revision())
}

func TestGameOver_BlockedSpawnLeavesGridUnchanged(t *testing.T) {
	d := tetris.DefaultDimensions()
	state := newTestState(t, d, tetris.KindO)
	state.HardDrop()
	require.True(t, state.grid.PlaceLocked(tetris.KindO.SpawnPosition(d), tetris.KindZ))

	state.Tick()

	assert.True(t, state.IsOver())
	_, _, ok := state.ActivePiece()
	assert.False(t, ok)
	active, locked := countTiles(state)
	assert.Zero(t, active)
	assert.Equal(t, 5, locked)
}

func TestHold_OncePerLockedPiece(t *testing.T) {
	d := tetris.DefaultDimensions()
	state := newTestState(t, d, tetris.KindT, tetris.KindO, tetris.KindI, tetris.KindS)

	require.True(t, state.Hold())
	held, ok := state.HeldKind()
	require.True(t, ok)
	assert.Equal(t, tetris.KindT, held)
	kind, _, _ := state.ActivePiece()
	assert.Equal(t, tetris.KindO, kind)
	assert.Equal(t, tetris.KindI, state.NextKind())

	assert.False(t, state.HoldAvailable())
	assert.False(t, state.Hold())
	active, _ := countTiles(state)
	assert.Equal(t, 4, active, "the held piece leaves no tiles behind")

	dropAndLock(state)
	kind, _, _ = state.ActivePiece()
	require.Equal(t, tetris.KindI, kind)

	// 2回目以降はホールド中の種類と入れ替え、出現位置から出し直す
	require.True(t, state.Hold())
	held, _ = state.HeldKind()
	assert.Equal(t, tetris.KindI, held)
	kind, cells, _ := state.ActivePiece()
	assert.Equal(t, tetris.KindT, kind)

	pos := tetris.KindT.SpawnPosition(d)
	var expected [4]tetris.Cell
	for i, off := range tetris.KindT.Offsets(tetris.KindT.SpawnOrientation()) {
		expected[i] = pos.Add(off)
	}
	assert.Equal(t, expected, cells)
	assert.Equal(t, tetris.KindS, state.NextKind(), "swapping does not draw from the randomizer")
}

func TestSnapshot_JSON(t *testing.T) {
	state := newTestState(t, tetris.DefaultDimensions(), tetris.KindT, tetris.KindO)

	data, err := json.Marshal(state.Snapshot())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(10), decoded["width"])
	assert.Equal(t, float64(40), decoded["height"])
	assert.Equal(t, float64(20), decoded["visible_height"])
	assert.Equal(t, "O", decoded["next"])
	assert.Nil(t, decoded["held"])
	assert.Equal(t, false, decoded["is_over"])
	assert.Len(t, decoded["tiles"], 4)
	assert.NotContains(t, decoded, "id")

	state.Hold()
	snap := state.Snapshot()
	require.NotNil(t, snap.Held)
	assert.Equal(t, tetris.KindT, *snap.Held)
	for _, tile := range snap.Tiles {
		assert.True(t, tile.Active)
		assert.Equal(t, tetris.KindO, tile.Kind)
	}
}

// TestRandomPlay_ReachesGameOver はランダムな操作を続けてもパニックせず、いずれゲームオーバーになることを確認します。
func TestRandomPlay_ReachesGameOver(t *testing.T) {
	settings := DefaultGameSettings()
	settings.Seed = 2024
	state, err := NewGameState(settings)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	actions := []string{ActionMoveLeft, ActionMoveRight, ActionRotate, ActionRotateLeft, ActionSoftDrop, ActionHardDrop, ActionHold}

	for i := 0; i < 200000 && !state.IsOver(); i++ {
		if rng.Intn(3) == 0 {
			ApplyPlayerInput(state, actions[rng.Intn(len(actions))])
		}
		state.Tick()

		if _, _, ok := state.ActivePiece(); ok {
			active, _ := countTiles(state)
			require.Equal(t, 4, active)
		}
		require.Equal(t, LevelForLines(1, state.LinesCleared()), state.Level())
	}
	assert.True(t, state.IsOver())
}
