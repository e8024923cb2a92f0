package handlers

import (
	"fmt"
	"net/http"
)

// PublicHandlerFunc は認証不要のヘルスチェック用エンドポイントです。
// GET /api/public
func PublicHandlerFunc(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "GITRIS engine is running (From /api/public)")
}
