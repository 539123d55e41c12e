package core

import (
	"math"
	"testing"
)

func TestDotProduct(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float32
	}{
		{
			name: "orthogonal vectors",
			a:    []float32{1, 0},
			b:    []float32{0, 1},
			want: 0,
		},
		{
			name: "identical unit vectors",
			a:    []float32{1, 0},
			b:    []float32{1, 0},
			want: 1,
		},
		{
			name: "mismatched lengths use shorter prefix",
			a:    []float32{1, 2, 3},
			b:    []float32{1, 1},
			want: 3,
		},
		{
			name: "empty vectors",
			a:    nil,
			b:    nil,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DotProduct(tt.a, tt.b); got != tt.want {
				t.Errorf("DotProduct() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeVector(t *testing.T) {
	v := NormalizeVector([]float32{3, 4})

	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("NormalizeVector() = %v, want [0.6 0.8]", v)
	}

	var mag float32
	for _, val := range v {
		mag += val * val
	}
	if math.Abs(float64(mag)-1.0) > 1e-6 {
		t.Errorf("normalized magnitude = %v, want 1", mag)
	}
}

func TestNormalizeVector_Zero(t *testing.T) {
	v := NormalizeVector([]float32{0, 0, 0})
	for i, val := range v {
		if val != 0 {
			t.Errorf("element %d = %v, want 0", i, val)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	// Magnitude must not affect the result.
	a := []float32{1, 2, 3}
	b := []float32{2, 4, 6}

	if got := CosineSimilarity(a, b); math.Abs(float64(got)-1.0) > 1e-6 {
		t.Errorf("CosineSimilarity(parallel) = %v, want 1", got)
	}

	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("CosineSimilarity(orthogonal) = %v, want 0", got)
	}

	if got := CosineSimilarity([]float32{0, 0}, []float32{1, 1}); got != 0 {
		t.Errorf("CosineSimilarity(zero vector) = %v, want 0", got)
	}
}
