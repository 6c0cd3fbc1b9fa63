// Package match suggests the intended name when a rule file, a command line
// or a code lookup refers to an unknown section, field, transform or code.
//
// Names are compared on a normalized key: CamelCase and snake_case are split
// into lowercase tokens, the count prefix of archive fields ("n_points") and a
// plural "s" are dropped, and the joined tokens are scored by edit distance.
package match

import (
	"cmp"
	"slices"
	"strings"
	"unicode"
)

// MinScore is the minimum similarity for a name to be suggested.
const MinScore = 0.6

// Suggest returns up to n known names whose similarity with target is at
// least MinScore, best first. Ties are broken by name.
func Suggest(target string, known []string, n int) []string {
	type scored struct {
		name  string
		score float64
	}

	var hits []scored

	for _, name := range known {
		if s := Score(target, name); s >= MinScore {
			hits = append(hits, scored{name, s})
		}
	}

	slices.SortFunc(hits, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}

		return strings.Compare(a.name, b.name)
	})

	out := make([]string, 0, min(n, len(hits)))
	for _, h := range hits[:min(n, len(hits))] {
		out = append(out, h.name)
	}

	return out
}

// Score is the similarity of two names between 0 and 1, the better of the
// plain and the reduced keys.
func Score(a, b string) float64 {
	return max(similarity(Key(a), Key(b)), similarity(reducedKey(a), reducedKey(b)))
}

// Key joins the lowercase tokens of name.
func Key(name string) string {
	return strings.Join(Tokens(name), "")
}

// reducedKey is Key without the count prefix "n" and a trailing plural "s",
// so that "n_points" matches "points" and "xc_functional" matches
// "XCFunctionals".
func reducedKey(name string) string {
	tokens := Tokens(name)
	if len(tokens) > 1 && tokens[0] == "n" {
		tokens = tokens[1:]
	}

	key := strings.Join(tokens, "")
	if len(key) > 3 {
		key = strings.TrimSuffix(key, "s")
	}

	return key
}

// Tokens splits an identifier at separators, lower to upper case changes and
// the end of acronyms ("DOSProfile" is "dos", "profile").
func Tokens(name string) []string {
	var (
		tokens []string
		cur    []rune
	)

	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}

	runes := []rune(name)

	for i, r := range runes {
		if r == '_' || r == '-' || r == ' ' || r == '.' {
			flush()
			continue
		}

		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			acronymEnd := unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])

			if unicode.IsLower(prev) || unicode.IsDigit(prev) || acronymEnd {
				flush()
			}
		}

		cur = append(cur, r)
	}

	flush()

	return tokens
}

// similarity is 1 - distance/longest length.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)

	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}

	return 1 - float64(Distance(ra, rb))/float64(longest)
}

// Distance is the Levenshtein distance of a and b.
func Distance(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}

	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}

	for i := 1; i <= len(a); i++ {
		diag := row[0]
		row[0] = i

		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}

			diag, row[j] = row[j], min(row[j]+1, row[j-1]+1, diag+cost)
		}
	}

	return row[len(b)]
}
