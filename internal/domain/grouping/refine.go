package grouping

import "github.com/groupify/groupify/internal/domain/insight"

// Refine runs exactly iterations random swap trials over gs and returns it.
// A trial picks two distinct groups and one member in each, swaps them, and
// keeps the swap only when the two groups' combined deviation strictly
// drops. Group sizes never change. Partitions with fewer than two groups are
// returned untouched.
func Refine(gs Groups, global insight.Profile, iterations int, rng Rand) Groups {
	refine(gs, global, iterations, rng)
	return gs
}

// refine is Refine that also reports how many swaps were kept.
func refine(gs Groups, global insight.Profile, iterations int, rng Rand) int {
	if len(gs) < 2 {
		return 0
	}
	if rng == nil {
		rng = defaultRand{}
	}

	accepted := 0
	for range iterations {
		g1 := rng.IntN(len(gs))
		// Draw from the remaining len-1 groups so g2 != g1 without retrying.
		g2 := rng.IntN(len(gs) - 1)
		if g2 >= g1 {
			g2++
		}
		a, b := gs[g1], gs[g2]
		if len(a) == 0 || len(b) == 0 {
			continue
		}

		i := rng.IntN(len(a))
		j := rng.IntN(len(b))

		before := refinementScore(a.Average(), global) + refinementScore(b.Average(), global)
		a[i], b[j] = b[j], a[i]
		after := refinementScore(a.Average(), global) + refinementScore(b.Average(), global)

		if after < before {
			accepted++
			continue
		}
		a[i], b[j] = b[j], a[i]
	}
	return accepted
}
