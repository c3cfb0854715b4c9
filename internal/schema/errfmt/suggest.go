package errfmt

import (
	"fmt"

	"github.com/xrash/smetrics"
)

// suggest returns the allowed value closest to got by edit distance, or ""
// when nothing is close enough to be a plausible typo.
func suggest(got string, allowed []any) string {
	best, bestDist := "", -1
	for _, a := range allowed {
		candidate := fmt.Sprint(a)
		d := smetrics.WagnerFischer(got, candidate, 1, 1, 1)
		if bestDist < 0 || d < bestDist {
			best, bestDist = candidate, d
		}
	}
	if bestDist < 0 || bestDist > len(best)/2 {
		return ""
	}
	return best
}
