// Package grouping partitions a roster of members into fixed-size groups
// whose average insight profiles stay close to the roster's global average.
//
// The engine runs three stages in sequence: Prepare validates the input and
// computes the global average, Seed assigns members greedily in a
// deterministic order, and Refine performs randomized pairwise swaps that are
// kept only when they strictly lower the combined deviation of the two groups
// involved. Everything here is pure and synchronous; independent calls may run
// concurrently as long as they do not share a roster or partition.
package grouping

import "github.com/groupify/groupify/internal/domain/insight"

// Member is an opaque identifier with its insight profile. A nil Profile
// means the member has not filled one in.
type Member struct {
	ID      string
	Profile *insight.Profile
}

// Group is a capacity-bounded bucket of members.
type Group []Member

// IDs returns the member ids of g in order.
func (g Group) IDs() []string {
	ids := make([]string, len(g))
	for i, m := range g {
		ids[i] = m.ID
	}
	return ids
}

// Average returns the element-wise mean of the members' profiles, or the
// zero vector for an empty group. Every member must carry a profile.
func (g Group) Average() insight.Profile {
	if len(g) == 0 {
		return insight.Profile{}
	}
	var sum insight.Profile
	for _, m := range g {
		sum = sum.Add(*m.Profile)
	}
	return sum.Div(float64(len(g)))
}

// Groups is an ordered partition of a roster.
type Groups []Group

// IDs returns the member ids of every group, in group order.
func (gs Groups) IDs() [][]string {
	out := make([][]string, len(gs))
	for i, g := range gs {
		out[i] = g.IDs()
	}
	return out
}

// Sizes returns the number of members in each group.
func (gs Groups) Sizes() []int {
	out := make([]int, len(gs))
	for i, g := range gs {
		out[i] = len(g)
	}
	return out
}

// Rand is the random source used by Refine. *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}
