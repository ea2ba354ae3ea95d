package attendance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vijay-2155/VignanEcap/internal/attendance"
)

func TestComputeOverallPercentage(t *testing.T) {
	tests := []struct {
		name    string
		present int
		total   int
		want    float64
	}{
		{"zero sessions", 0, 0, 0},
		{"perfect", 20, 20, 100},
		{"three quarters", 75, 100, 75},
		{"ninety", 18, 20, 90},
		{"sixty", 30, 50, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := attendance.Compute(tt.present, tt.total)
			assert.InDelta(t, tt.want, got.OverallPercentage, 1e-9)
		})
	}
}

func TestComputeSkippableSessions(t *testing.T) {
	tests := []struct {
		name    string
		present int
		total   int
		want    int
	}{
		{"exactly at threshold", 75, 100, 0},
		{"capped at twenty", 90, 100, 20},
		{"below threshold", 30, 50, 0},
		{"no sessions", 0, 0, 0},
		{"small margin", 18, 20, 4},
		{"one skippable", 31, 40, 1},
		{"all present far above cap", 200, 200, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := attendance.Compute(tt.present, tt.total)
			assert.Equal(t, tt.want, got.SkippableSessions)
		})
	}
}

// The metric must be the maximal k: percentage holds at k and breaks at k+1
// (unless capped).
func TestSkippableIsMaximal(t *testing.T) {
	cases := [][2]int{{18, 20}, {31, 40}, {76, 100}, {150, 180}}

	for _, c := range cases {
		present, total := c[0], c[1]
		k := attendance.Compute(present, total).SkippableSessions

		holds := func(extra int) bool {
			return float64(present)/float64(total+extra)*100 >= attendance.ComplianceThreshold
		}

		assert.True(t, holds(k), "present=%d total=%d k=%d must hold", present, total, k)
		if k < attendance.SkippableCap {
			assert.False(t, holds(k+1), "present=%d total=%d k=%d must be maximal", present, total, k)
		}
	}
}
