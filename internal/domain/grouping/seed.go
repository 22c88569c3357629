package grouping

import (
	"fmt"
	"math"

	"github.com/groupify/groupify/internal/domain/insight"
)

// SeedingMode selects the objective used while seeding.
type SeedingMode int

const (
	// SeedingLegacy scores candidates with |avg + global|.
	SeedingLegacy SeedingMode = iota
	// SeedingBalanced scores candidates with the deviation |avg - global|.
	SeedingBalanced
)

// String implements fmt.Stringer.
func (m SeedingMode) String() string {
	switch m {
	case SeedingLegacy:
		return "legacy"
	case SeedingBalanced:
		return "balanced"
	default:
		return fmt.Sprintf("SeedingMode(%d)", int(m))
	}
}

// ParseSeedingMode maps "legacy" and "balanced" to their modes.
func ParseSeedingMode(s string) (SeedingMode, error) {
	switch s {
	case "", "legacy":
		return SeedingLegacy, nil
	case "balanced":
		return SeedingBalanced, nil
	default:
		return SeedingLegacy, fmt.Errorf("unknown seeding mode %q", s)
	}
}

func (m SeedingMode) score(avg, global insight.Profile) float64 {
	if m == SeedingBalanced {
		return refinementScore(avg, global)
	}
	return seedingScore(avg, global)
}

// Seed greedily assigns the members of sorted, in order, to
// ceil(len(sorted)/groupSize) groups. Each member goes to the non-full group
// whose average after insertion scores lowest; ties keep the earliest group.
// sorted must come from Prepare.
func Seed(sorted []Member, global insight.Profile, groupSize int) Groups {
	return seed(sorted, global, groupSize, SeedingLegacy)
}

func seed(sorted []Member, global insight.Profile, groupSize int, mode SeedingMode) Groups {
	groups := make(Groups, GroupCount(len(sorted), groupSize))
	for i := range groups {
		groups[i] = make(Group, 0, groupSize)
	}
	// Running sums avoid recomputing every candidate's average from scratch.
	sums := make([]insight.Profile, len(groups))

	for _, m := range sorted {
		best := -1
		bestScore := math.Inf(1)
		for i, g := range groups {
			if len(g) >= groupSize {
				continue
			}
			avg := sums[i].Add(*m.Profile).Div(float64(len(g) + 1))
			if s := mode.score(avg, global); best < 0 || s < bestScore {
				best, bestScore = i, s
			}
		}
		if best < 0 {
			panic(fmt.Sprintf("grouping: no group has room for member %q", m.ID))
		}
		groups[best] = append(groups[best], m)
		sums[best] = sums[best].Add(*m.Profile)
	}
	return groups
}
