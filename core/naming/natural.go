package naming

import "unicode"

// NaturalLess reports whether a sorts before b, comparing runs of digits by
// numeric value so "2.json" sorts before "10.json".
func NaturalLess(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	i, j := 0, 0
	for i < len(ra) && j < len(rb) {
		ca, cb := ra[i], rb[j]
		if unicode.IsDigit(ca) && unicode.IsDigit(cb) {
			si := i
			for i < len(ra) && unicode.IsDigit(ra[i]) {
				i++
			}
			sj := j
			for j < len(rb) && unicode.IsDigit(rb[j]) {
				j++
			}
			na, nb := trimZeros(ra[si:i]), trimZeros(rb[sj:j])
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			for k := range na {
				if na[k] != nb[k] {
					return na[k] < nb[k]
				}
			}
			// Equal value: fewer leading zeros first.
			if i-si != j-sj {
				return i-si < j-sj
			}
			continue
		}
		if ca != cb {
			return ca < cb
		}
		i++
		j++
	}
	return len(ra)-i < len(rb)-j
}

func trimZeros(r []rune) []rune {
	for len(r) > 1 && r[0] == '0' {
		r = r[1:]
	}
	return r
}
