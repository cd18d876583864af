package match

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// TokenSortRatio scores two strings in [0, 100] independently of word
// order: both sides are reduced to lower-case alphanumeric tokens, the
// tokens are sorted and re-joined, and the joined forms are compared with
// an indel-distance ratio. Either side empty after processing scores 0.
func TokenSortRatio(a, b string) int {
	sa := sortedTokens(a)
	sb := sortedTokens(b)
	if sa == "" || sb == "" {
		return 0
	}
	return int(math.RoundToEven(100 * IndelRatio(sa, sb)))
}

// sortedTokens lower-cases, turns every rune that is not a letter, digit
// or underscore into a separator and returns the sorted tokens.
func sortedTokens(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)

	tokens := strings.Fields(cleaned)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// IndelRatio returns 2*LCS / (len(a)+len(b)), the similarity implied by
// an edit distance that only allows insertions and deletions.
func IndelRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	return float64(2*longestCommonSubsequence(ra, rb)) / float64(total)
}

func longestCommonSubsequence(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
