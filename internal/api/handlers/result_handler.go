package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/services/tetris"
)

// ResultHandler は終了したゲームの結果を返すハンドラーです。
type ResultHandler struct {
	sessionManager *tetris.SessionManager
}

// NewResultHandler は新しいResultHandlerインスタンスを作成します。
func NewResultHandler(sm *tetris.SessionManager) *ResultHandler {
	return &ResultHandler{
		sessionManager: sm,
	}
}

// GetResult は指定したゲームの結果を取得するハンドラーです。
// GET /api/games/{gameID}/result
func (h *ResultHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameID"]

	result, err := h.sessionManager.Result(gameID)
	switch {
	case errors.Is(err, tetris.ErrSessionNotFound):
		WriteErrorResponse(w, http.StatusNotFound, "指定されたゲームは見つかりませんでした")
		return
	case errors.Is(err, tetris.ErrSessionNotFinished):
		WriteErrorResponse(w, http.StatusConflict, "ゲームはまだ終了していません")
		return
	case err != nil:
		log.Printf("ゲーム結果取得エラー: %v", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "ゲーム結果取得に失敗しました")
		return
	}

	WriteJSONResponse(w, http.StatusOK, result)
}
