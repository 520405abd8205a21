package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/cellsim/internal/dynamo"
)

func TestTableauConsistency(t *testing.T) {
	tests := []struct {
		name string
		tb   tableau
	}{
		{"euler", eulerTableau},
		{"rk4", classicTableau},
		{"dopri", dopriTableau},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.tb.a) != tt.tb.stages() || len(tt.tb.b) != tt.tb.stages() {
				t.Fatalf("ragged tableau: %d rows, %d weights, %d stages", len(tt.tb.a), len(tt.tb.b), tt.tb.stages())
			}
			sum := 0.0
			for _, w := range tt.tb.b {
				sum += w
			}
			if math.Abs(sum-1) > 1e-12 {
				t.Errorf("weights sum to %v, want 1", sum)
			}
			for i, row := range tt.tb.a {
				if len(row) > i {
					t.Errorf("row %d is not explicit", i)
				}
				rowSum := 0.0
				for _, w := range row {
					rowSum += w
				}
				if math.Abs(rowSum-tt.tb.c[i]) > 1e-12 {
					t.Errorf("row %d sums to %v, want c=%v", i, rowSum, tt.tb.c[i])
				}
			}
		})
	}

	embedded := 0.0
	for _, w := range dopriEmbedded {
		embedded += w
	}
	if math.Abs(embedded-1) > 1e-12 {
		t.Errorf("embedded weights sum to %v, want 1", embedded)
	}
}

func TestSlopesResizeBetweenRuns(t *testing.T) {
	integ := NewRK4()
	one := integ.Step(&relaxation{tau: 1}, dynamo.State{0}, dynamo.Control{1}, 0, 0.1)
	two := integ.Step(&simpleDynamics{}, dynamo.State{1, 0}, nil, 0, 0.1)

	if len(one) != 1 || len(two) != 2 {
		t.Fatalf("state sizes %d and %d, want 1 and 2", len(one), len(two))
	}
	if want := 1 - math.Exp(-0.1); math.Abs(one[0]-want) > 1e-6 {
		t.Errorf("relaxation step = %v, want %v", one[0], want)
	}
	if want := math.Cos(0.1); math.Abs(two[0]-want) > 1e-6 {
		t.Errorf("oscillator step = %v, want %v", two[0], want)
	}
}
