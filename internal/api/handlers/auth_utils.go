package handlers

import (
	"errors"
	"net/http"

	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/api/middleware"
)

// ExtractUserIDFromContext はリクエストのコンテキストからユーザーIDを抽出します。
func ExtractUserIDFromContext(r *http.Request) (string, error) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		return "", errors.New("ユーザーIDがコンテキストに見つかりません")
	}
	return userID, nil
}
