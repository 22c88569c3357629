package grouping

import "github.com/groupify/groupify/internal/domain/insight"

// Result is the outcome of a Run with the figures callers report on.
type Result struct {
	Groups          Groups
	Global          insight.Profile
	SeededDeviation float64
	FinalDeviation  float64
	Trials          int
	Accepted        int
}

// Partition splits roster into groups of at most groupSize members. It
// returns one of the package's sentinel errors when the input is infeasible
// and never returns a partial result.
func Partition(roster []Member, groupSize int, opts ...Option) (Groups, error) {
	res, err := Run(roster, groupSize, opts...)
	if err != nil {
		return nil, err
	}
	return res.Groups, nil
}

// Run is Partition that also reports deviation before and after refinement
// and how many swaps were kept.
func Run(roster []Member, groupSize int, opts ...Option) (Result, error) {
	o := newOptions(opts)
	if o.existing > 0 {
		return Result{}, ErrAlreadyPartitioned
	}

	sorted, global, err := Prepare(roster, groupSize)
	if err != nil {
		return Result{}, err
	}

	groups := seed(sorted, global, groupSize, o.mode)
	seeded := TotalDeviation(groups, global)

	trials := o.trials(len(roster))
	accepted := refine(groups, global, trials, o.rng)

	return Result{
		Groups:          groups,
		Global:          global,
		SeededDeviation: seeded,
		FinalDeviation:  TotalDeviation(groups, global),
		Trials:          trials,
		Accepted:        accepted,
	}, nil
}
