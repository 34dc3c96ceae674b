package similarity

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldAccents maps "Québec" to "Quebec" so accented titles still share tokens.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Clean folds accents, lowercases, and replaces anything outside [a-z0-9 ]
// with a space.
func Clean(text string) string {
	lower := strings.ToLower(foldAccents(text))
	b := make([]byte, 0, len(lower))
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == ' ' {
			b = append(b, c)
			continue
		}
		b = append(b, ' ')
	}
	return strings.TrimSpace(string(b))
}

// TokenSortRatio scores two strings in [0,100] independent of word order:
// both sides are cleaned, tokenized, sorted and rejoined, then compared with
// an indel-normalized ratio.
func TokenSortRatio(a, b string) float64 {
	return ratio(sortTokens(Clean(a)), sortTokens(Clean(b)))
}

// LexicalMatrix scores every pair of a x b with TokenSortRatio.
func LexicalMatrix(a, b []string) Matrix {
	as := make([]string, len(a))
	for i, s := range a {
		as[i] = sortTokens(Clean(s))
	}
	bs := make([]string, len(b))
	for j, s := range b {
		bs[j] = sortTokens(Clean(s))
	}
	m := NewMatrix(Lexical, len(a), len(b))
	for i := range as {
		for j := range bs {
			m.Values[i][j] = ratio(as[i], bs[j])
		}
	}
	return m
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// ratio is 100 * (1 - indel/(len(a)+len(b))), where indel counts the
// insertions and deletions needed to turn a into b.
func ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	total := len(a) + len(b)
	lcs := lcsLength(a, b)
	return 100 * float64(2*lcs) / float64(total)
}

func lcsLength(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
