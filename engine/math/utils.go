package math

import "golang.org/x/exp/constraints"

// Clamp limits v to [low, high].
func Clamp[T constraints.Ordered](v, low, high T) T {
	return max(low, min(v, high))
}

// WrapAngle maps radians into [0, 2π).
func WrapAngle(radians float32) float32 {
	a := Mod(radians, K_PI_2)
	if a < 0 {
		a += K_PI_2
	}
	// fmod of a tiny negative can round up to exactly 2π.
	if a >= K_PI_2 {
		a = 0
	}
	return a
}
