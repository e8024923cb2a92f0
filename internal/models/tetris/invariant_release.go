//go:build release

package tetris

const checkInvariants = false
