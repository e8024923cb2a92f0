package tetris

import "time"

// ゲームループの速度設定など、ゲーム全体に影響する定数を定義します。
const (
	DefaultTickInterval  = time.Second / 60 // 1エポック（ドライバが Tick を呼ぶ間隔）
	InitialGravityEpochs = 20               // レベル1で1行落ちるまでのエポック数
	MinGravityEpochs     = 2                // 落下間隔の下限
	GravityStepPerLevel  = 2                // レベルが1上がるごとに短くなるエポック数
	LevelUpLines         = 5                // レベルアップに必要なライン数（5ラインごとにレベルアップ）
)

// プレイヤー操作を表すアクション名です。WebSocket の {"action": ...} で使われます。
const (
	ActionMoveLeft    = "move_left"
	ActionMoveRight   = "move_right"
	ActionRotate      = "rotate" // rotate_right と同じ
	ActionRotateRight = "rotate_right"
	ActionRotateLeft  = "rotate_left"
	ActionSoftDrop    = "soft_drop"
	ActionHardDrop    = "hard_drop"
	ActionHold        = "hold"
)

// GravityThreshold は現在のレベルで1行落下するまでに必要なエポック数を返します。
func GravityThreshold(level int) int {
	if level < 1 {
		level = 1
	}
	return max(MinGravityEpochs, InitialGravityEpochs-GravityStepPerLevel*(level-1))
}

// LevelForLines はクリアしたライン数からレベルを計算します。
func LevelForLines(startLevel, linesCleared int) int {
	return startLevel + linesCleared/LevelUpLines
}

// ApplyPlayerInput はプレイヤーの入力（アクション）に基づいて、ゲーム状態を更新します。
// 未知のアクションは無視されます。
//
// Parameters:
//   state  : 更新するゲーム状態のポインタ
//   action : プレイヤーが実行したアクション（例: "move_left", "rotate"）
// Returns:
//   bool: ゲーム状態が実際に変更された場合はtrue、変更されなかった場合はfalse
func ApplyPlayerInput(state *GameState, action string) bool {
	if state == nil || state.IsOver() {
		return false // ゲームオーバー後の操作は受け付けない
	}

	switch action {
	case ActionMoveLeft:
		return state.MoveLeft()
	case ActionMoveRight:
		return state.MoveRight()
	case ActionRotate, ActionRotateRight:
		return state.RotateRight()
	case ActionRotateLeft:
		return state.RotateLeft()
	case ActionSoftDrop:
		return state.SoftDrop()
	case ActionHardDrop:
		return state.HardDrop() > 0
	case ActionHold:
		return state.Hold()
	}
	return false
}
