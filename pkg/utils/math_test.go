package utils

import (
	"math"
	"testing"
)

func TestNormalizeL2(t *testing.T) {
	x := []float32{3, 4}
	NormalizeL2(x)
	if math.Abs(float64(x[0])-0.6) > 1e-6 || math.Abs(float64(x[1])-0.8) > 1e-6 {
		t.Errorf("got %v", x)
	}
	zero := []float32{0, 0}
	NormalizeL2(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Error("zero vector should be unchanged")
	}
}

func TestL2Norm(t *testing.T) {
	if n := L2Norm([]float32{3, 4}); n != 5 {
		t.Errorf("got %f", n)
	}
}

func TestSquaredL2(t *testing.T) {
	if d := SquaredL2([]float32{1, 2}, []float32{4, 6}); d != 25 {
		t.Errorf("got %f", d)
	}
	if d := SquaredL2([]float32{1, 2}, []float32{1, 2}); d != 0 {
		t.Errorf("identical vectors: got %f", d)
	}
}
