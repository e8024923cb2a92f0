package keyrepeat

import "time"

// Interval は押し続けた横移動キーが繰り返される間隔です。
const Interval = 100 * time.Millisecond

// TPS はティック間隔を 1 秒あたりのティック数に換算します。最低 1 です。
func TPS(tick time.Duration) int {
	if tick <= 0 {
		return 1
	}
	return max(1, int(time.Second/tick))
}

// Ticks は時間 d がティック何回分かを返します。最低 1 です。
func Ticks(d, tick time.Duration) int {
	if tick <= 0 {
		return 1
	}
	return max(1, int(d/tick))
}

// Fires は押されてから pressed ティック目に入力を発生させるかを返します。
// pressed は押された最初のティックを 1 として数えます。
// 押した瞬間に 1 回、その後は every ティックごとに発生します。
func Fires(pressed, every int) bool {
	if pressed <= 0 {
		return false
	}
	every = max(1, every)
	return (pressed-1)%every == 0
}
