package tetris

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket" // WebSocketライブラリのインポート
)

// セッションの状態
const (
	StatusWaiting  = "waiting"  // 作成済み、クライアント未接続
	StatusPlaying  = "playing"  // Tick が進んでいる
	StatusFinished = "finished" // ゲームオーバーまたは切断で終了
)

const (
	FinishedSessionTTL = 5 * time.Minute // 終了したセッションの最終状態を保持する時間
	sendBufferSize     = 64
	maxMessageSize     = 1024
	pongWait           = 60 * time.Second
	pingPeriod         = pongWait * 9 / 10
	writeWait          = 10 * time.Second
)

var (
	ErrSessionNotFound = errors.New("game session not found")
	ErrSessionFinished = errors.New("game session already finished")
	ErrManagerStopped  = errors.New("session manager stopped")
)

// Client はWebSocket接続を持つ単一のクライアントを表します。
type Client struct {
	ID     string          // 接続ごとのID
	UserID string          // このクライアントに紐づくユーザーのID（認証無効時は空）
	GameID string          // このクライアントが表示しているゲームのID
	Conn   *websocket.Conn // クライアントとの実際のWebSocketコネクション
	Send   chan []byte     // クライアントへメッセージを送信するためのバッファ付きチャネル
	closed bool            // チャネルが閉じられたかどうかのフラグ
	mu     sync.Mutex      // closedフラグ保護用
}

// SafeSend は安全にチャネルにメッセージを送信します（closedチェック付き）
func (c *Client) SafeSend(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false // 既に閉じられている
	}

	select {
	case c.Send <- message:
		return true
	default:
		return false // チャネルがフル
	}
}

// SafeClose は安全にチャネルを閉じます
func (c *Client) SafeClose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.Send)
		c.closed = true
	}
}

// GameSession は1人のプレイヤーの1ゲームとセッション情報を含みます。
// state は SessionManager の Run ゴルーチンだけが触ります。
// 他のゴルーチンは snapshot だけを読みます。
type GameSession struct {
	ID        string
	OwnerID   string // 作成したユーザー（認証無効時は空）
	Status    string
	StartedAt time.Time
	EndedAt   time.Time

	state        *GameState
	snapshot     atomic.Pointer[Snapshot]
	result       atomic.Pointer[Result] // 終了するまで nil
	lastRevision uint64
}

// publish は現在の状態からスナップショットを作り直します。
func (gs *GameSession) publish() *Snapshot {
	snap := gs.state.Snapshot()
	snap.ID = gs.ID
	snap.Status = gs.Status
	gs.snapshot.Store(&snap)
	gs.lastRevision = gs.state.Revision()
	return &snap
}

// PlayerInputEvent はクライアントからの操作入力を表す構造体です。
// WebSocketを通じてサーバーに送信されます。
type PlayerInputEvent struct {
	ClientID string `json:"-"`
	UserID   string `json:"-"`
	Action   string `json:"action"` // "move_left", "move_right", "rotate", "hard_drop", "hold" など
}

// SessionManager はゲームセッションとWebSocketクライアント接続の全体を管理します。
// ゲーム状態の変更はすべて Run ゴルーチンの中で行われます。
type SessionManager struct {
	sessions    map[string]*GameSession // gameID -> GameSession
	clients     map[string]*Client      // clientID -> Client
	register    chan *Client
	unregister  chan *Client
	inputEvents chan PlayerInputEvent
	quit        chan struct{}
	quitOnce    sync.Once
	mu          sync.RWMutex // sessions と clients マップへのアクセスを保護するためのRWMutex

	settings     GameSettings
	tickInterval time.Duration
	finishedTTL  time.Duration
}

func newSessionManager(settings GameSettings, tickInterval time.Duration) *SessionManager {
	if tickInterval <= 0 {
		tickInterval = DefaultTickInterval
	}
	return &SessionManager{
		sessions:     make(map[string]*GameSession),
		clients:      make(map[string]*Client),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		inputEvents:  make(chan PlayerInputEvent, 512), // プレイヤー操作のキューイング用
		quit:         make(chan struct{}),
		settings:     settings,
		tickInterval: tickInterval,
		finishedTTL:  FinishedSessionTTL,
	}
}

// NewSessionManager は新しい SessionManager インスタンスを作成し、そのメインイベントループをバックグラウンドで開始します。
//
// Parameters:
//   settings     : 新しいゲームに使う設定
//   tickInterval : 1エポックの長さ（0 以下なら DefaultTickInterval）
// Returns:
//   *SessionManager: 初期化されたセッションマネージャーのポインタ
func NewSessionManager(settings GameSettings, tickInterval time.Duration) *SessionManager {
	sm := newSessionManager(settings, tickInterval)
	go sm.Run()
	return sm
}

// Run は SessionManager のメインイベントループです。
// クライアントの登録/解除、プレイヤー入力の処理、Tick、終了したセッションの掃除を行います。
func (sm *SessionManager) Run() {
	ticker := time.NewTicker(sm.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case client := <-sm.register:
			sm.handleRegister(client)

		case client := <-sm.unregister:
			sm.handleUnregister(client)

		case event := <-sm.inputEvents:
			sm.handleInput(event)

		case now := <-ticker.C:
			sm.tickSessions(now)

		case <-sm.quit:
			log.Printf("[SessionManager] シャットダウンシグナルを受信、メインループを終了します")
			return
		}
	}
}

// CreateSession は新しいゲームセッションを作成します。
//
// Parameters:
//   ownerID : 作成したユーザーのID（認証無効時は空文字列）
// Returns:
//   string: 作成されたゲームのID
//   error : ゲームを初期化できなかった場合
func (sm *SessionManager) CreateSession(ownerID string) (string, error) {
	state, err := NewGameState(sm.settings)
	if err != nil {
		log.Printf("[SessionManager] Failed to create game state: %v", err)
		return "", fmt.Errorf("failed to create game session: %w", err)
	}

	session := &GameSession{
		ID:      uuid.New().String(),
		OwnerID: ownerID,
		Status:  StatusWaiting,
		state:   state,
	}
	session.publish()

	sm.mu.Lock()
	sm.sessions[session.ID] = session
	sm.mu.Unlock()

	log.Printf("[SessionManager] Created new game session: %s for user %q", session.ID, ownerID)
	return session.ID, nil
}

// Snapshot は指定されたゲームの最新のスナップショットを返します。
// 主にハンドラーから状態を取得するために使用されます。
func (sm *SessionManager) Snapshot(gameID string) (Snapshot, error) {
	session, ok := sm.getSession(gameID)
	if !ok {
		return Snapshot{}, ErrSessionNotFound
	}
	return *session.snapshot.Load(), nil
}

// Owner はゲームを作成したユーザーのIDを返します。
func (sm *SessionManager) Owner(gameID string) (string, error) {
	session, ok := sm.getSession(gameID)
	if !ok {
		return "", ErrSessionNotFound
	}
	return session.OwnerID, nil
}

func (sm *SessionManager) getSession(gameID string) (*GameSession, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	session, ok := sm.sessions[gameID]
	return session, ok
}

// RegisterClient は新しいWebSocketクライアントをSessionManagerに登録します。
//
// Parameters:
//   gameID : クライアントが接続するゲームのID
//   userID : クライアントのユーザーID
//   conn   : WebSocketコネクション
// Returns:
//   error: ゲームが存在しない・終了済み、またはマネージャーが停止している場合
func (sm *SessionManager) RegisterClient(gameID, userID string, conn *websocket.Conn) error {
	session, ok := sm.getSession(gameID)
	if !ok {
		return ErrSessionNotFound
	}
	if snap := session.snapshot.Load(); snap.Status == StatusFinished {
		return ErrSessionFinished
	}

	client := &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		GameID: gameID,
		Conn:   conn,
		Send:   make(chan []byte, sendBufferSize),
	}

	select {
	case sm.register <- client:
	case <-sm.quit:
		return ErrManagerStopped
	}

	go sm.readPump(client)
	go client.writePump()
	return nil
}

func (sm *SessionManager) handleRegister(client *Client) {
	session, ok := sm.getSession(client.GameID)
	if !ok || session.Status == StatusFinished {
		log.Printf("[SessionManager] Client %s tried to join unavailable game %s", client.ID, client.GameID)
		client.SafeClose()
		return
	}

	sm.mu.Lock()
	sm.clients[client.ID] = client
	sm.mu.Unlock()
	log.Printf("[SessionManager] Client registered: %s (Game: %s, User: %q)", client.ID, client.GameID, client.UserID)

	if session.Status == StatusWaiting {
		session.Status = StatusPlaying
		session.StartedAt = time.Now()
		log.Printf("[SessionManager] Game session %s started", session.ID)
	}
	sm.sendSnapshot(client, session.publish())
}

func (sm *SessionManager) handleUnregister(client *Client) {
	sm.mu.Lock()
	_, ok := sm.clients[client.ID]
	if ok {
		delete(sm.clients, client.ID)
	}
	sm.mu.Unlock()
	client.SafeClose()

	if !ok {
		return // endGameSession で既に削除済み
	}
	log.Printf("[SessionManager] Client unregistered: %s (Game: %s)", client.ID, client.GameID)

	// プレイヤーがゲーム中に退出し、他に接続がなければセッションを終了させる
	session, exists := sm.getSession(client.GameID)
	if exists && session.Status == StatusPlaying && len(sm.clientsOf(client.GameID)) == 0 {
		log.Printf("[SessionManager] Last client left game %s during play. Ending session.", client.GameID)
		sm.endGameSession(client.GameID)
	}
}

// handleInput はプレイヤー入力を適用し、状態が変わっていればブロードキャストします。
func (sm *SessionManager) handleInput(event PlayerInputEvent) {
	sm.mu.RLock()
	client, ok := sm.clients[event.ClientID]
	sm.mu.RUnlock()
	if !ok {
		log.Printf("[SessionManager] Received input from unregistered client %s", event.ClientID)
		return
	}

	session, ok := sm.getSession(client.GameID)
	if !ok || session.Status != StatusPlaying {
		return // 存在しないか、プレイ中でないゲームへの入力は無視
	}
	if session.OwnerID != "" && session.OwnerID != client.UserID {
		log.Printf("[SessionManager] Ignoring input from non-owner %q in game %s", client.UserID, session.ID)
		return
	}

	if ApplyPlayerInput(session.state, event.Action) {
		sm.broadcastIfChanged(session)
	}
	if session.state.IsOver() {
		sm.endGameSession(session.ID)
	}
}

// tickSessions はプレイ中の全セッションを1エポック進め、保持期間を過ぎた終了済みセッションを削除します。
func (sm *SessionManager) tickSessions(now time.Time) {
	sm.mu.RLock()
	sessions := make([]*GameSession, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		sessions = append(sessions, session)
	}
	sm.mu.RUnlock()

	for _, session := range sessions {
		switch session.Status {
		case StatusPlaying:
			session.state.Tick()
			sm.broadcastIfChanged(session)
			if session.state.IsOver() {
				sm.endGameSession(session.ID)
			}
		case StatusFinished:
			if now.Sub(session.EndedAt) >= sm.finishedTTL {
				sm.mu.Lock()
				delete(sm.sessions, session.ID)
				sm.mu.Unlock()
				log.Printf("[SessionManager] Removed finished session %s", session.ID)
			}
		}
	}
}

func (sm *SessionManager) broadcastIfChanged(session *GameSession) {
	if session.state.Revision() == session.lastRevision {
		return
	}
	sm.broadcast(session, session.publish())
}

func (sm *SessionManager) broadcast(session *GameSession, snap *Snapshot) {
	for _, client := range sm.clientsOf(session.ID) {
		sm.sendSnapshot(client, snap)
	}
}

func (sm *SessionManager) sendSnapshot(client *Client, snap *Snapshot) {
	message, err := json.Marshal(snap)
	if err != nil {
		log.Printf("[SessionManager] Error marshaling snapshot for game %s: %v", snap.ID, err)
		return
	}
	if !client.SafeSend(message) {
		log.Printf("[SessionManager] Failed to send to client %s (channel closed or full)", client.ID)
	}
}

func (sm *SessionManager) clientsOf(gameID string) []*Client {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	var clients []*Client
	for _, client := range sm.clients {
		if client.GameID == gameID {
			clients = append(clients, client)
		}
	}
	return clients
}

// endGameSession はゲームセッションを終了させ、最終状態を送信してから接続中のクライアントを切断します。
// セッション自体は FinishedSessionTTL の間、最終状態を返すために残ります。
// Status と EndedAt をロックなしで書き換えるので、Run ゴルーチンからだけ呼び出してください。
//
// Parameters:
//   gameID : 終了するゲームのID
func (sm *SessionManager) endGameSession(gameID string) {
	session, ok := sm.getSession(gameID)
	if !ok {
		log.Printf("[SessionManager] endGameSession called for non-existent game: %s", gameID)
		return
	}
	if session.Status == StatusFinished {
		return // 既に終了済み
	}

	session.Status = StatusFinished
	session.EndedAt = time.Now()
	session.result.Store(newResult(session))
	log.Printf("[SessionManager] Game session %s ended. Level %d, Lines Cleared: %d",
		gameID, session.state.Level(), session.state.LinesCleared())

	clients := sm.clientsOf(gameID)
	sm.broadcast(session, session.publish())

	sm.mu.Lock()
	for _, client := range clients {
		delete(sm.clients, client.ID)
	}
	sm.mu.Unlock()
	for _, client := range clients {
		client.SafeClose() // writePump が Close メッセージを送って終了する
	}
}

// Shutdown はSessionManagerを安全にシャットダウンします
func (sm *SessionManager) Shutdown() {
	log.Printf("[SessionManager] シャットダウン開始...")
	sm.quitOnce.Do(func() { close(sm.quit) })

	sm.mu.Lock()
	for id, client := range sm.clients {
		if client.Conn != nil {
			client.Conn.Close()
		}
		client.SafeClose()
		delete(sm.clients, id)
	}
	sm.sessions = make(map[string]*GameSession)
	sm.mu.Unlock()

	log.Printf("[SessionManager] シャットダウン完了")
}

// readPump はクライアントからのWebSocketメッセージを読み込み、 inputEvents チャネルに送信します。
func (sm *SessionManager) readPump(client *Client) {
	defer func() {
		select {
		case sm.unregister <- client:
		case <-sm.quit:
		}
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(maxMessageSize)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[SessionManager] WebSocket unexpected close error for client %s: %v", client.ID, err)
			}
			return
		}

		var inputEvent PlayerInputEvent
		if err := json.Unmarshal(message, &inputEvent); err != nil {
			log.Printf("[SessionManager] Failed to unmarshal input message from %s: %v", client.ID, err)
			continue // パース失敗時はこのメッセージをスキップ
		}
		inputEvent.ClientID = client.ID
		inputEvent.UserID = client.UserID // 受信したメッセージの内容ではなく接続のユーザーを使う

		select {
		case sm.inputEvents <- inputEvent:
		case <-sm.quit:
			return
		default:
			log.Printf("[SessionManager] Input events channel is full, dropping message from client %s", client.ID)
		}
	}
}

// writePump は Client の Send チャネルからのメッセージをWebSocketコネクションに書き込みます。
// クライアントごとにこのゴルーチンが動作します。
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// マネージャーがチャネルを閉じた場合 (ゲーム終了や登録解除時)
				c.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "game finished"))
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[Client] Error writing message for client %s: %v", c.ID, err)
				return
			}

		case <-ticker.C:
			// ピングメッセージを定期的に送信してコネクションの生存確認
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
