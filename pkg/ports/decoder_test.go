package ports

import (
	"math"
	"testing"
	"time"
)

func TestRational_Duration(t *testing.T) {
	tests := []struct {
		name string
		tb   Rational
		ts   int64
		want time.Duration
	}{
		{"milliseconds", Rational{1, 1000}, 1500, 1500 * time.Millisecond},
		{"90kHz", Rational{1, 90000}, 90000, time.Second},
		{"NTSC frame", Rational{1001, 30000}, 30, 1001 * time.Millisecond},
		{"negative", Rational{1, 1000}, -40, -40 * time.Millisecond},
		{"zero denominator", Rational{1, 0}, 42, 0},
		{"product overflows int64", Rational{3, 2000000000}, 4e18, time.Duration(6e18)},
		{"saturates", Rational{1, 1}, math.MaxInt64, time.Duration(math.MaxInt64)},
		{"saturates negative", Rational{1, 1}, math.MinInt64 + 1, time.Duration(math.MinInt64)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tb.Duration(tt.ts); got != tt.want {
				t.Errorf("%v.Duration(%d) = %v, want %v", tt.tb, tt.ts, got, tt.want)
			}
		})
	}
}
