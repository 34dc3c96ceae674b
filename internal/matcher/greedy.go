package matcher

import (
	"fmt"
	"sort"

	"github.com/hetulpatel/crossarb/internal/similarity"
)

// Assignment is one accepted (row, column) pair of a similarity matrix.
type Assignment struct {
	Row   int
	Col   int
	Score similarity.Score
}

type candidate struct {
	score float64
	row   int
	col   int
}

// Greedy pairs rows with columns best-first. Candidates are sorted by score
// descending, ties broken by descending row then descending column; the walk
// stops at the first score below min and accepts a candidate only when its
// row and column are both unused. The result is conflict-free but not a
// maximum-weight matching.
func Greedy(m similarity.Matrix, min similarity.Score) ([]Assignment, error) {
	if m.Unit != min.Unit {
		return nil, fmt.Errorf("matcher: %w: matrix is %s, threshold is %s", similarity.ErrUnitMismatch, m.Unit, min.Unit)
	}
	rows, cols := m.Rows(), m.Cols()
	if rows == 0 || cols == 0 {
		return nil, nil
	}

	cands := make([]candidate, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			cands = append(cands, candidate{score: m.Values[i][j], row: i, col: j})
		}
	}
	sort.Slice(cands, func(a, b int) bool {
		ca, cb := cands[a], cands[b]
		if ca.score != cb.score {
			return ca.score > cb.score
		}
		if ca.row != cb.row {
			return ca.row > cb.row
		}
		return ca.col > cb.col
	})

	usedRows := make(map[int]bool, rows)
	usedCols := make(map[int]bool, cols)
	limit := rows
	if cols < limit {
		limit = cols
	}
	out := make([]Assignment, 0, limit)
	for _, c := range cands {
		if c.score < min.Value {
			break
		}
		if usedRows[c.row] || usedCols[c.col] {
			continue
		}
		out = append(out, Assignment{Row: c.row, Col: c.col, Score: similarity.Score{Unit: m.Unit, Value: c.score}})
		usedRows[c.row] = true
		usedCols[c.col] = true
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
