package tetris

import (
	"errors"
	"time"
)

// ErrSessionNotFinished は終了前のセッションの結果を要求したときに返されます。
var ErrSessionNotFinished = errors.New("game session not finished yet")

// Result は終了したゲームセッションの結果です。
// 終了時に一度だけ作られ、保持期間が過ぎるとセッションと一緒に消えます。
type Result struct {
	GameID       string    `json:"game_id"`
	OwnerID      string    `json:"owner_id,omitempty"`
	Level        int       `json:"level"`
	LinesCleared int       `json:"lines_cleared"`
	GameOver     bool      `json:"game_over"` // false なら切断などで途中終了
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
	DurationMs   int64     `json:"duration_ms"`
}

// newResult はセッションの現在の状態から結果を作ります。
// 一度も開始されなかったセッションは長さ 0 になります。
func newResult(session *GameSession) *Result {
	started := session.StartedAt
	if started.IsZero() {
		started = session.EndedAt
	}
	return &Result{
		GameID:       session.ID,
		OwnerID:      session.OwnerID,
		Level:        session.state.Level(),
		LinesCleared: session.state.LinesCleared(),
		GameOver:     session.state.IsOver(),
		StartedAt:    started,
		EndedAt:      session.EndedAt,
		DurationMs:   session.EndedAt.Sub(started).Milliseconds(),
	}
}

// Result は終了したセッションの結果を返します。
//
// Returns:
//   Result: ゲームの結果
//   error: セッションが存在しない場合は ErrSessionNotFound、まだ終わっていない場合は ErrSessionNotFinished
func (sm *SessionManager) Result(gameID string) (Result, error) {
	session, ok := sm.getSession(gameID)
	if !ok {
		return Result{}, ErrSessionNotFound
	}
	result := session.result.Load()
	if result == nil {
		return Result{}, ErrSessionNotFinished
	}
	return *result, nil
}
