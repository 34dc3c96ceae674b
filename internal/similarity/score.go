package similarity

import (
	"errors"
	"fmt"
	"math"
)

// Unit tags which scale a score lives on. Cosine scores are in [-1,1],
// lexical scores in [0,100]; the two are never compared directly.
type Unit string

const (
	Cosine  Unit = "cosine"
	Lexical Unit = "lexical"
)

var ErrUnitMismatch = errors.New("similarity: score unit mismatch")

// Score is a similarity value tagged with its unit.
type Score struct {
	Unit  Unit    `json:"unit"`
	Value float64 `json:"value"`
}

func CosineScore(v float64) Score {
	return Score{Unit: Cosine, Value: v}
}

func LexicalScore(v float64) Score {
	return Score{Unit: Lexical, Value: v}
}

// Threshold interprets a bare configured threshold: values <= 1 are cosine,
// larger values are already on the lexical scale.
func Threshold(v float64) Score {
	if v <= 1 {
		return CosineScore(v)
	}
	return LexicalScore(v)
}

// ParseUnit returns the unit named by s, defaulting to Cosine for empty input.
func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case Cosine, "":
		return Cosine, nil
	case Lexical:
		return Lexical, nil
	default:
		return "", fmt.Errorf("similarity: unknown unit %q", s)
	}
}

// As rescales the score onto unit u (cosine x100 -> lexical, lexical /100 -> cosine).
func (s Score) As(u Unit) Score {
	switch {
	case s.Unit == u:
		return s
	case s.Unit == Cosine && u == Lexical:
		return LexicalScore(s.Value * 100)
	case s.Unit == Lexical && u == Cosine:
		return CosineScore(s.Value / 100)
	default:
		return Score{Unit: u, Value: s.Value}
	}
}

// AtLeast reports whether s >= min. Scores on different units are an error.
func (s Score) AtLeast(min Score) (bool, error) {
	if s.Unit != min.Unit {
		return false, fmt.Errorf("%w: %s vs %s", ErrUnitMismatch, s.Unit, min.Unit)
	}
	return s.Value >= min.Value, nil
}

// Rounded returns the score rounded to 4 decimal places.
func (s Score) Rounded() Score {
	return Score{Unit: s.Unit, Value: Round4(s.Value)}
}

func (s Score) String() string {
	if s.Unit == Lexical {
		return fmt.Sprintf("%.0f", s.Value)
	}
	return fmt.Sprintf("%.3f", s.Value)
}

// Round4 rounds half away from zero to 4 decimal places.
func Round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
