package grouping

import "github.com/groupify/groupify/internal/domain/insight"

// seedingScore is the greedy-seeding objective: the component sum of
// |avg + global|. It adds rather than subtracts the global average and is
// therefore not the same function as refinementScore.
func seedingScore(avg, global insight.Profile) float64 {
	return avg.Add(global).Abs().Sum()
}

// refinementScore is the swap objective: the component sum of
// |avg - global|, i.e. the deviation score.
func refinementScore(avg, global insight.Profile) float64 {
	return avg.AbsDiff(global).Sum()
}

// Deviation returns the deviation score of g against global. Lower is more
// balanced. An empty group scores zero.
func Deviation(g Group, global insight.Profile) float64 {
	if len(g) == 0 {
		return 0
	}
	return refinementScore(g.Average(), global)
}

// TotalDeviation sums Deviation over every group.
func TotalDeviation(gs Groups, global insight.Profile) float64 {
	var total float64
	for _, g := range gs {
		total += Deviation(g, global)
	}
	return total
}

// GlobalAverage returns the mean profile over members. Every member must
// carry a profile.
func GlobalAverage(members []Member) insight.Profile {
	return Group(members).Average()
}
