// Package uictl defines read-only controls a UI can poll without knowing
// what sits behind them.
package uictl

import "golang.org/x/exp/constraints"

type Number interface {
	constraints.Integer | constraints.Float
}

// Dial is a control that can read some value.
type Dial[N Number] interface {
	Read() N
}

// CappedDial is a Dial with a maximum cap value.
type CappedDial[N Number] interface {
	Dial[N]
	Cap() (num, max N)
}

// Fraction returns num/max clamped to [0, 1]. A zero cap reads as 0.
func Fraction[N Number](d CappedDial[N]) float64 {
	num, capacity := d.Cap()
	if capacity <= 0 {
		return 0
	}

	f := float64(num) / float64(capacity)

	return min(max(f, 0), 1)
}
