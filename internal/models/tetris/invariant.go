package tetris

import "fmt"

// assertInvariant はコアのバグ（4ブロックでないピース、同じ位置の固定タイルなど）を検出したときに panic します。
// release ビルドタグ付きでビルドすると検査は行われません。
func assertInvariant(cond bool, format string, args ...any) {
	if checkInvariants && !cond {
		panic(fmt.Sprintf("tetris: invariant violated: "+format, args...))
	}
}
