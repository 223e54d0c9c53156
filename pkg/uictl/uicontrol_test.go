package uictl_test

import (
	"testing"

	"github.com/alkime/scribe/pkg/uictl"
	"github.com/stretchr/testify/assert"
)

type fixedDial struct {
	current, max int64
}

func (f fixedDial) Read() int64         { return f.current }
func (f fixedDial) Cap() (int64, int64) { return f.current, f.max }

func TestFraction(t *testing.T) {
	tests := []struct {
		name string
		dial fixedDial
		want float64
	}{
		{name: "half", dial: fixedDial{current: 50, max: 100}, want: 0.5},
		{name: "zero cap", dial: fixedDial{current: 10, max: 0}, want: 0},
		{name: "overshoot clamps", dial: fixedDial{current: 150, max: 100}, want: 1},
		{name: "done", dial: fixedDial{current: 100, max: 100}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, uictl.Fraction[int64](tt.dial), 0.0001)
		})
	}
}
