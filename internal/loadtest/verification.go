package loadtest

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/groupify/groupify/pkg/logger"
)

// ErrVerification is returned when the stored groups break a partition
// invariant.
var ErrVerification = errors.New("verification failed")

// verifyGroups checks that every member sits in exactly one group, that the
// group count is ceil(members / groupSize), that no group exceeds groupSize
// and that numbers run 1..N.
func verifyGroups(ctx context.Context, members []Member, groups []Group, groupSize int, stats *Stats) error {
	logger.Get().Info(ctx, "verifying groups", logger.Int("groups", len(groups)))

	var problems []error

	want := (len(members) + groupSize - 1) / groupSize
	if len(groups) != want {
		problems = append(problems, fmt.Errorf("%d groups, want %d", len(groups), want))
	}

	expected := make(map[string]bool, len(members))
	for _, m := range members {
		expected[m.ID] = true
	}
	seen := make(map[string]int, len(members))

	stats.SmallestGroup, stats.LargestGroup = math.MaxInt, 0
	for i, g := range groups {
		if g.Number != i+1 {
			problems = append(problems, fmt.Errorf("group %s has number %d at position %d", g.ID, g.Number, i+1))
		}
		n := len(g.MemberIDs)
		if n == 0 || n > groupSize {
			problems = append(problems, fmt.Errorf("group %d has %d members", g.Number, n))
		}
		stats.SmallestGroup = min(stats.SmallestGroup, n)
		stats.LargestGroup = max(stats.LargestGroup, n)

		for _, id := range g.MemberIDs {
			if !expected[id] {
				problems = append(problems, fmt.Errorf("group %d holds unknown member %s", g.Number, id))
			}
			seen[id]++
		}
	}
	for id := range expected {
		switch seen[id] {
		case 1:
		case 0:
			problems = append(problems, fmt.Errorf("member %s is in no group", id))
		default:
			problems = append(problems, fmt.Errorf("member %s is in %d groups", id, seen[id]))
		}
	}

	stats.Groups = len(groups)
	stats.Spread = spread(groups)

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrVerification, errors.Join(problems...))
	}
	logger.Get().Info(ctx, "groups verified",
		logger.Int("smallest", stats.SmallestGroup),
		logger.Int("largest", stats.LargestGroup),
		logger.Float64("spread", stats.Spread),
	)
	return nil
}

// spread is the largest gap between any two group averages on a single
// energy, a rough view of how balanced the partition came out.
func spread(groups []Group) float64 {
	if len(groups) == 0 {
		return 0
	}
	var out float64
	for d := 0; d < 4; d++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, g := range groups {
			lo = math.Min(lo, g.Average[d])
			hi = math.Max(hi, g.Average[d])
		}
		out = math.Max(out, hi-lo)
	}
	return out
}
