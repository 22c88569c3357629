// Package match ranks members of a room by how similar their insight
// profiles are to a given member's.
package match

import (
	"errors"
	"math"
	"sort"

	"github.com/groupify/groupify/internal/domain/insight"
)

// DefaultLimit caps the number of matches returned when no limit is given.
const DefaultLimit = 10

// ErrMissingProfile is returned when the requesting member has no profile.
var ErrMissingProfile = errors.New("member has no insight profile")

// Candidate is a member that may be matched.
type Candidate struct {
	ID      string
	Profile *insight.Profile
}

// Result is a ranked match.
type Result struct {
	MemberID   string
	Distance   float64
	Percentage float64
}

// Matcher scores similarity within an energy range.
type Matcher struct {
	maxDistance float64
}

// NewMatcher returns a Matcher for energies in [lo, hi]. The largest
// possible distance, between (lo,lo,lo,lo) and (hi,hi,hi,hi), maps to 0%.
func NewMatcher(lo, hi float64) *Matcher {
	floor := insight.New(lo, lo, lo, lo)
	ceil := insight.New(hi, hi, hi, hi)
	return &Matcher{maxDistance: floor.Distance(ceil)}
}

// Percentage maps a distance to a 0..100 similarity.
func (m *Matcher) Percentage(d float64) float64 {
	if m.maxDistance <= 0 {
		if d == 0 {
			return 100
		}
		return 0
	}
	return math.Max(0, math.Min(100, 100*(1-d/m.maxDistance)))
}

// Rank orders candidates by ascending distance to self and returns at most
// limit of them. self is skipped, as are candidates without a profile. Ties
// are broken by member id. limit <= 0 uses DefaultLimit.
func (m *Matcher) Rank(self Candidate, candidates []Candidate, limit int) ([]Result, error) {
	if self.Profile == nil {
		return nil, ErrMissingProfile
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	out := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == self.ID || c.Profile == nil {
			continue
		}
		d := self.Profile.Distance(*c.Profile)
		out = append(out, Result{MemberID: c.ID, Distance: d, Percentage: m.Percentage(d)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].MemberID < out[j].MemberID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
