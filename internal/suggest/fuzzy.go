package suggest

import "strings"

// fuzzyScore implements §4.7 step 9's scoring ladder. ok is false when the
// partial word does not even appear as a subsequence, meaning the
// candidate is dropped entirely rather than merely ranked low.
func fuzzyScore(partial, label string) (score int, ok bool) {
	if partial == "" {
		return 100, true
	}
	p := strings.ToLower(partial)
	l := strings.ToLower(label)

	if p == l {
		return 100, true
	}
	if strings.HasPrefix(l, p) {
		s := 90 - (len(l) - len(p))
		if s < 50 {
			s = 50
		}
		return s, true
	}
	if strings.Contains(l, p) {
		return 70, true
	}
	if n, ok := subsequenceMatch(p, l); ok {
		s := 60 + 5*n
		if s > 80 {
			s = 80
		}
		return s, true
	}
	return 0, false
}

// subsequenceMatch reports whether every rune of p appears in l in order,
// and how many of p's runes were matched (always len(p) on success).
func subsequenceMatch(p, l string) (int, bool) {
	pRunes := []rune(p)
	lRunes := []rune(l)
	i := 0
	for _, r := range lRunes {
		if i >= len(pRunes) {
			break
		}
		if r == pRunes[i] {
			i++
		}
	}
	return i, i == len(pRunes)
}
