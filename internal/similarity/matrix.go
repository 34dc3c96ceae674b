package similarity

import "math"

const normEpsilon = 1e-10

// Matrix is an N x M similarity matrix whose cells share one unit.
type Matrix struct {
	Unit   Unit
	Values [][]float64
}

func NewMatrix(unit Unit, rows, cols int) Matrix {
	values := make([][]float64, rows)
	for i := range values {
		values[i] = make([]float64, cols)
	}
	return Matrix{Unit: unit, Values: values}
}

func (m Matrix) Rows() int {
	return len(m.Values)
}

func (m Matrix) Cols() int {
	if len(m.Values) == 0 {
		return 0
	}
	return len(m.Values[0])
}

// At returns cell (i, j) as a tagged score.
func (m Matrix) At(i, j int) Score {
	return Score{Unit: m.Unit, Value: m.Values[i][j]}
}

// CosineMatrix computes cosine similarity between every row of a and every
// row of b. Zero vectors are protected by an epsilon on the norm.
func CosineMatrix(a, b [][]float32) Matrix {
	an := normalizeRows(a)
	bn := normalizeRows(b)
	m := NewMatrix(Cosine, len(an), len(bn))
	for i, x := range an {
		for j, y := range bn {
			m.Values[i][j] = dot(x, y)
		}
	}
	return m
}

func normalizeRows(vs [][]float32) [][]float64 {
	out := make([][]float64, len(vs))
	for i, v := range vs {
		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		norm := math.Sqrt(sum) + normEpsilon
		row := make([]float64, len(v))
		for k, x := range v {
			row[k] = float64(x) / norm
		}
		out[i] = row
	}
	return out
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var s float64
	for k := 0; k < n; k++ {
		s += a[k] * b[k]
	}
	return s
}
