package tetris

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/models/tetris"
)

// newTestManager は Run ゴルーチンを起動しない SessionManager を作ります。
// テストではハンドラを直接呼び出して Run の1ステップを再現します。
func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	settings := DefaultGameSettings()
	settings.Seed = 42
	return newSessionManager(settings, time.Millisecond)
}

func newTestClient(gameID, userID string) *Client {
	return &Client{
		ID:     "client-" + userID,
		UserID: userID,
		GameID: gameID,
		Send:   make(chan []byte, sendBufferSize),
	}
}

// drain は Send チャネルにたまったスナップショットを取り出します。
func drain(t *testing.T, c *Client) (snaps []Snapshot, closed bool) {
	t.Helper()
	for {
		select {
		case msg, ok := <-c.Send:
			if !ok {
				return snaps, true
			}
			var snap Snapshot
			require.NoError(t, json.Unmarshal(msg, &snap))
			snaps = append(snaps, snap)
		default:
			return snaps, false
		}
	}
}

func TestCreateSession(t *testing.T) {
	sm := newTestManager(t)

	gameID, err := sm.CreateSession("alice")
	require.NoError(t, err)

	snap, err := sm.Snapshot(gameID)
	require.NoError(t, err)
	assert.Equal(t, gameID, snap.ID)
	assert.Equal(t, StatusWaiting, snap.Status)
	assert.Len(t, snap.Tiles, 4)
	assert.False(t, snap.IsOver)

	owner, err := sm.Owner(gameID)
	require.NoError(t, err)
	assert.Equal(t, "alice", owner)
}

func TestCreateSession_InvalidSettings(t *testing.T) {
	sm := newSessionManager(GameSettings{Dimensions: tetris.Dimensions{Width: 1, Height: 1, VisibleHeight: 1}, StartLevel: 1}, 0)
	_, err := sm.CreateSession("")
	assert.Error(t, err)
	assert.Equal(t, DefaultTickInterval, sm.tickInterval)
}

func TestSnapshot_UnknownGame(t *testing.T) {
	sm := newTestManager(t)
	_, err := sm.Snapshot("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = sm.Owner("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, sm.RegisterClient("missing", "", nil), ErrSessionNotFound)
}

func TestHandleRegister_StartsGame(t *testing.T) {
	sm := newTestManager(t)
	gameID, err := sm.CreateSession("")
	require.NoError(t, err)

	client := newTestClient(gameID, "")
	sm.handleRegister(client)

	snaps, closed := drain(t, client)
	assert.False(t, closed)
	require.Len(t, snaps, 1)
	assert.Equal(t, StatusPlaying, snaps[0].Status)

	snap, err := sm.Snapshot(gameID)
	require.NoError(t, err)
	assert.Equal(t, StatusPlaying, snap.Status)
}

func TestHandleRegister_UnknownGameClosesClient(t *testing.T) {
	sm := newTestManager(t)
	client := newTestClient("missing", "")
	sm.handleRegister(client)

	_, closed := drain(t, client)
	assert.True(t, closed)
	assert.Empty(t, sm.clientsOf("missing"))
}

func TestHandleInput_BroadcastsChanges(t *testing.T) {
	sm := newTestManager(t)
	gameID, err := sm.CreateSession("alice")
	require.NoError(t, err)
	owner := newTestClient(gameID, "alice")
	viewer := newTestClient(gameID, "bob")
	sm.handleRegister(owner)
	sm.handleRegister(viewer)
	drain(t, owner)
	drain(t, viewer)

	before, err := sm.Snapshot(gameID)
	require.NoError(t, err)

	sm.handleInput(PlayerInputEvent{ClientID: owner.ID, UserID: "alice", Action: ActionMoveLeft})

	ownerSnaps, _ := drain(t, owner)
	viewerSnaps, _ := drain(t, viewer)
	require.Len(t, ownerSnaps, 1)
	require.Len(t, viewerSnaps, 1)
	assert.Greater(t, ownerSnaps[0].Revision, before.Revision)

	// 作成者以外の入力は無視される
	sm.handleInput(PlayerInputEvent{ClientID: viewer.ID, UserID: "bob", Action: ActionMoveLeft})
	ownerSnaps, _ = drain(t, owner)
	assert.Empty(t, ownerSnaps)

	// 変化しない入力はブロードキャストされない
	sm.handleInput(PlayerInputEvent{ClientID: owner.ID, UserID: "alice", Action: "jump"})
	ownerSnaps, _ = drain(t, owner)
	assert.Empty(t, ownerSnaps)
}

func TestTickSessions_OnlyAdvancesPlayingGames(t *testing.T) {
	sm := newTestManager(t)
	waitingID, err := sm.CreateSession("")
	require.NoError(t, err)
	playingID, err := sm.CreateSession("")
	require.NoError(t, err)

	client := newTestClient(playingID, "")
	sm.handleRegister(client)
	drain(t, client)

	waitingBefore, _ := sm.Snapshot(waitingID)
	now := time.Now()
	for i := 0; i < GravityThreshold(1); i++ {
		sm.tickSessions(now)
	}

	snaps, _ := drain(t, client)
	assert.Len(t, snaps, 1, "only the gravity step changes the state")
	waitingAfter, _ := sm.Snapshot(waitingID)
	assert.Equal(t, waitingBefore.Revision, waitingAfter.Revision)
}

func TestEndGameSession(t *testing.T) {
	sm := newTestManager(t)
	sm.finishedTTL = time.Minute
	gameID, err := sm.CreateSession("")
	require.NoError(t, err)
	client := newTestClient(gameID, "")
	sm.handleRegister(client)
	drain(t, client)

	_, err = sm.Result(gameID)
	assert.ErrorIs(t, err, ErrSessionNotFinished)

	sm.endGameSession(gameID)

	result, err := sm.Result(gameID)
	require.NoError(t, err)
	assert.Equal(t, gameID, result.GameID)
	assert.False(t, result.GameOver)
	assert.Equal(t, 1, result.Level)
	assert.GreaterOrEqual(t, result.DurationMs, int64(0))
	assert.False(t, result.StartedAt.After(result.EndedAt))

	snaps, closed := drain(t, client)
	assert.True(t, closed)
	require.Len(t, snaps, 1)
	assert.Equal(t, StatusFinished, snaps[0].Status)
	assert.Empty(t, sm.clientsOf(gameID))
	assert.ErrorIs(t, sm.RegisterClient(gameID, "", nil), ErrSessionFinished)

	// 二重に終了しても何も起きない
	sm.endGameSession(gameID)

	// 保持期間中は最終状態を返し、過ぎたら削除される
	session, _ := sm.getSession(gameID)
	sm.tickSessions(session.EndedAt.Add(30 * time.Second))
	_, err = sm.Snapshot(gameID)
	assert.NoError(t, err)

	sm.tickSessions(session.EndedAt.Add(2 * time.Minute))
	_, err = sm.Snapshot(gameID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = sm.Result(gameID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestHandleUnregister_LastClientEndsGame(t *testing.T) {
	sm := newTestManager(t)
	gameID, err := sm.CreateSession("")
	require.NoError(t, err)
	a := newTestClient(gameID, "a")
	b := newTestClient(gameID, "b")
	sm.handleRegister(a)
	sm.handleRegister(b)

	sm.handleUnregister(a)
	snap, _ := sm.Snapshot(gameID)
	assert.Equal(t, StatusPlaying, snap.Status)

	sm.handleUnregister(b)
	snap, _ = sm.Snapshot(gameID)
	assert.Equal(t, StatusFinished, snap.Status)

	// 既に削除済みのクライアントの解除は無視される
	sm.handleUnregister(b)
}

// TestGameOver_EndsSession はゲームオーバーになったセッションが終了し、クライアントが切断されることを確認します。
func TestGameOver_EndsSession(t *testing.T) {
	settings := GameSettings{
		Dimensions: tetris.Dimensions{Width: 4, Height: 10, VisibleHeight: 6},
		StartLevel: 1,
		Randomizer: scripted(tetris.KindO),
	}
	sm := newSessionManager(settings, time.Millisecond)
	gameID, err := sm.CreateSession("")
	require.NoError(t, err)
	client := newTestClient(gameID, "")
	sm.handleRegister(client)

	now := time.Now()
	for i := 0; i < 100; i++ {
		snap, _ := sm.Snapshot(gameID)
		if snap.Status == StatusFinished {
			break
		}
		sm.handleInput(PlayerInputEvent{ClientID: client.ID, Action: ActionHardDrop})
		sm.tickSessions(now)
	}

	snap, err := sm.Snapshot(gameID)
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, snap.Status)
	assert.True(t, snap.IsOver)

	result, err := sm.Result(gameID)
	require.NoError(t, err)
	assert.True(t, result.GameOver)
	assert.Zero(t, result.LinesCleared)

	snaps, closed := drain(t, client)
	assert.True(t, closed)
	require.NotEmpty(t, snaps)
	assert.True(t, snaps[len(snaps)-1].IsOver)
}

func TestShutdown_IsIdempotent(t *testing.T) {
	sm := NewSessionManager(DefaultGameSettings(), time.Millisecond)
	gameID, err := sm.CreateSession("")
	require.NoError(t, err)

	sm.Shutdown()
	sm.Shutdown()

	_, err = sm.Snapshot(gameID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
