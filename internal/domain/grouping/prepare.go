package grouping

import (
	"fmt"
	"sort"

	"github.com/groupify/groupify/internal/domain/insight"
)

// MinGroupSize is the smallest group capacity the engine accepts.
const MinGroupSize = 2

// minRemainder is the smallest trailing group Prepare will allow.
const minRemainder = 2

// Prepare validates roster and groupSize and returns a copy of the roster
// sorted by ascending profile sum together with the global average profile.
// The sort is stable, so members with equal sums keep their input order and
// seeding stays reproducible. roster itself is not modified.
func Prepare(roster []Member, groupSize int) ([]Member, insight.Profile, error) {
	if err := CheckSize(len(roster), groupSize); err != nil {
		return nil, insight.Profile{}, err
	}
	for _, m := range roster {
		if m.Profile == nil {
			return nil, insight.Profile{}, fmt.Errorf("%w: member %q has none", ErrMissingProfile, m.ID)
		}
	}

	sorted := make([]Member, len(roster))
	copy(sorted, roster)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Profile.Sum() < sorted[j].Profile.Sum()
	})

	return sorted, GlobalAverage(sorted), nil
}

// CheckSize reports whether n members can be split into groups of
// groupSize. It runs the size checks of Prepare without needing profiles.
func CheckSize(n, groupSize int) error {
	if groupSize < MinGroupSize {
		return fmt.Errorf("%w: got %d", ErrInvalidGroupSize, groupSize)
	}
	if need := groupSize + minRemainder; n < need {
		return fmt.Errorf("%w: need at least %d members for groups of %d, have %d",
			ErrInsufficientMembers, need, groupSize, n)
	}
	return nil
}

// GroupCount returns ceil(n / groupSize).
func GroupCount(n, groupSize int) int {
	if groupSize <= 0 {
		return 0
	}
	return (n + groupSize - 1) / groupSize
}
