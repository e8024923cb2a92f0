package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket" // WebSocketライブラリ

	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/services/tetris" // SessionManager をインポート
)

const authTimeout = 10 * time.Second

// GameHandler はゲーム関連のHTTPリクエスト（ゲーム作成、状態取得、WebSocket接続）を処理します。
type GameHandler struct {
	sessionManager *tetris.SessionManager // ゲームセッションの管理サービス
	auth           middleware.AuthConfig
	upgrader       websocket.Upgrader
}

// NewGameHandler は新しい GameHandler インスタンスを作成します。
//
// Parameters:
//   sm             : セッションマネージャーへのポインタ
//   auth           : 認証設定（WebSocket の認証メッセージの検証に使う）
//   allowedOrigins : WebSocket 接続を許可するオリジン（"*" ですべて許可）
// Returns:
//   *GameHandler: 新しく作成された GameHandler のポインタ
func NewGameHandler(sm *tetris.SessionManager, auth middleware.AuthConfig, allowedOrigins []string) *GameHandler {
	return &GameHandler{
		sessionManager: sm,
		auth:           auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker は Origin ヘッダーが許可リストにあるかを確認します。
// Origin を送らないクライアント（ネイティブのレンダラーなど）は許可します。
func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, allowed := range allowedOrigins {
			if allowed == "*" || allowed == origin {
				return true
			}
		}
		return false
	}
}

// WriteErrorResponse はエラーレスポンスをJSON形式で書き込みます。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// WriteJSONResponse はJSONレスポンスを書き込みます。
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// CreateGame は新しいゲームを作成するためのHTTPハンドラーです。
// POST /api/games
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	userID, err := ExtractUserIDFromContext(r)
	if err != nil {
		log.Printf("[GameHandler] No user ID in context: %v", err)
		WriteErrorResponse(w, http.StatusUnauthorized, "ユーザーIDが必要です")
		return
	}

	// 認証無効時は誰でも操作できるゲームにする
	ownerID := ""
	if h.auth.Enabled() {
		ownerID = userID
	}

	gameID, err := h.sessionManager.CreateSession(ownerID)
	if err != nil {
		log.Printf("[GameHandler] Failed to create game for user %s: %v", userID, err)
		WriteErrorResponse(w, http.StatusInternalServerError, "ゲームの作成に失敗しました")
		return
	}

	WriteJSONResponse(w, http.StatusCreated, map[string]string{"game_id": gameID})
}

// GetGame は指定されたゲームの最新のスナップショットを返すハンドラーです。
// GET /api/games/{gameID}
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameID"]

	snap, err := h.sessionManager.Snapshot(gameID)
	if errors.Is(err, tetris.ErrSessionNotFound) {
		WriteErrorResponse(w, http.StatusNotFound, "指定されたゲームは見つかりませんでした")
		return
	}
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSONResponse(w, http.StatusOK, snap)
}

// HandleWebSocketConnection はHTTP接続をWebSocketプロトコルにアップグレードし、
// その後、WebSocketメッセージの送受信をセッションマネージャーに引き渡します。
// 認証が有効な場合、最初のメッセージは {"type": "auth", "token": "..."} である必要があります。
// GET /api/games/{gameID}/ws
func (h *GameHandler) HandleWebSocketConnection(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameID"]

	snap, err := h.sessionManager.Snapshot(gameID)
	if err != nil {
		WriteErrorResponse(w, http.StatusNotFound, "指定されたゲームは見つかりませんでした")
		return
	}
	if snap.Status == tetris.StatusFinished {
		WriteErrorResponse(w, http.StatusGone, "ゲームは既に終了しています")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[GameHandler] Failed to upgrade to websocket for game %s: %v", gameID, err)
		return // アップグレード失敗時はエラーログのみ
	}

	userID := ""
	if h.auth.Enabled() {
		userID, err = h.authenticate(conn)
		if err != nil {
			log.Printf("[GameHandler] WebSocket auth failed for game %s: %v", gameID, err)
			conn.WriteJSON(map[string]string{"error": err.Error()})
			conn.Close()
			return
		}
	}

	// readPump と writePump は RegisterClient 内で開始されるので、ここでは閉じない
	if err := h.sessionManager.RegisterClient(gameID, userID, conn); err != nil {
		log.Printf("[GameHandler] Failed to register client %q to game %s: %v", userID, gameID, err)
		conn.WriteJSON(map[string]string{"error": err.Error()})
		conn.Close()
		return
	}
}

// authenticate は最初のメッセージとして認証メッセージを待ち、ユーザーIDを返します。
func (h *GameHandler) authenticate(conn *websocket.Conn) (string, error) {
	conn.SetReadDeadline(time.Now().Add(authTimeout))
	defer conn.SetReadDeadline(time.Time{}) // タイムアウトを解除

	var authMsg struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	}
	if err := conn.ReadJSON(&authMsg); err != nil {
		return "", errors.New("failed to read auth message")
	}
	if authMsg.Type != "auth" {
		return "", errors.New("expected auth message")
	}

	userID, err := h.auth.ParseUserID(authMsg.Token)
	if err != nil {
		return "", middleware.ErrInvalidToken
	}
	conn.WriteJSON(map[string]string{"type": "auth_success", "message": "Authentication successful"})
	return userID, nil
}
