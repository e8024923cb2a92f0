package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/api/handlers"
	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/services/tetris"
)

// NewRouter はAPIのルーティングを構築し、CORSを適用したハンドラーを返します。
//
// Parameters:
//   sm             : セッションマネージャー
//   auth           : 認証設定
//   allowedOrigins : CORS と WebSocket で許可するオリジン
// Returns:
//   http.Handler: サーバーに渡すハンドラー
func NewRouter(sm *tetris.SessionManager, auth middleware.AuthConfig, allowedOrigins []string) http.Handler {
	gameHandler := handlers.NewGameHandler(sm, auth, allowedOrigins)
	resultHandler := handlers.NewResultHandler(sm)

	r := mux.NewRouter()
	// 認証不要な公開エンドポイント
	r.HandleFunc("/api/public", handlers.PublicHandlerFunc).Methods(http.MethodGet)
	r.HandleFunc("/api/games/{gameID}", gameHandler.GetGame).Methods(http.MethodGet)
	r.HandleFunc("/api/games/{gameID}/result", resultHandler.GetResult).Methods(http.MethodGet)
	// WebSocket はヘッダーを付けられないので、接続後の認証メッセージで認証する
	r.HandleFunc("/api/games/{gameID}/ws", gameHandler.HandleWebSocketConnection).Methods(http.MethodGet)

	// 認証が必要なルート
	protectedRouter := r.Methods(http.MethodPost).Subrouter()
	protectedRouter.Use(middleware.AuthMiddleware(auth))
	protectedRouter.HandleFunc("/api/games", gameHandler.CreateGame)

	return middleware.CORSHandler(allowedOrigins)(r)
}
