package grouping_test

import (
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/groupify/groupify/internal/domain/grouping"
	"github.com/groupify/groupify/internal/domain/insight"
	. "github.com/smartystreets/goconvey/convey"
)

func member(id string, r, g, b, y float64) grouping.Member {
	p := insight.New(r, g, b, y)
	return grouping.Member{ID: id, Profile: &p}
}

// workedRoster is the ten-member example roster.
func workedRoster() []grouping.Member {
	vs := [][4]float64{
		{6, 0, 0, 0}, {0, 6, 0, 0}, {0, 0, 6, 0}, {0, 0, 0, 6},
		{3, 3, 0, 0}, {0, 3, 3, 0}, {0, 0, 3, 3}, {3, 0, 0, 3},
		{1, 1, 1, 1}, {5, 1, 0, 0},
	}
	roster := make([]grouping.Member, len(vs))
	for i, v := range vs {
		roster[i] = member(fmt.Sprintf("m%d", i), v[0], v[1], v[2], v[3])
	}
	return roster
}

func randomRoster(n int, seed uint64) []grouping.Member {
	rng := grouping.NewRand(seed)
	roster := make([]grouping.Member, n)
	for i := range roster {
		roster[i] = member(fmt.Sprintf("member-%03d", i),
			rng.Float64()*6, rng.Float64()*6, rng.Float64()*6, rng.Float64()*6)
	}
	return roster
}

func flatten(gs grouping.Groups) []string {
	var ids []string
	for _, g := range gs {
		ids = append(ids, g.IDs()...)
	}
	sort.Strings(ids)
	return ids
}

func rosterIDs(roster []grouping.Member) []string {
	ids := make([]string, len(roster))
	for i, m := range roster {
		ids[i] = m.ID
	}
	sort.Strings(ids)
	return ids
}

func TestPrepare_Rejections(t *testing.T) {
	Convey("Given infeasible inputs", t, func() {
		roster := workedRoster()

		Convey("A group size of 1 is rejected", func() {
			_, _, err := grouping.Prepare(roster, 1)
			So(errors.Is(err, grouping.ErrInvalidGroupSize), ShouldBeTrue)
		})

		Convey("Zero and negative group sizes are rejected", func() {
			for _, size := range []int{0, -5} {
				_, err := grouping.Partition(roster, size)
				So(errors.Is(err, grouping.ErrInvalidGroupSize), ShouldBeTrue)
			}
		})

		Convey("Five members cannot form groups of five", func() {
			_, err := grouping.Partition(roster[:5], 5)
			So(errors.Is(err, grouping.ErrInsufficientMembers), ShouldBeTrue)
		})

		Convey("Six members are still one short for groups of five", func() {
			_, err := grouping.Partition(roster[:6], 5)
			So(errors.Is(err, grouping.ErrInsufficientMembers), ShouldBeTrue)
		})

		Convey("A single missing profile rejects the whole roster", func() {
			roster[3].Profile = nil
			_, err := grouping.Partition(roster, 5)
			So(errors.Is(err, grouping.ErrMissingProfile), ShouldBeTrue)
		})

		Convey("Group size is checked before roster size", func() {
			_, err := grouping.Partition(roster[:2], 1)
			So(errors.Is(err, grouping.ErrInvalidGroupSize), ShouldBeTrue)
		})

		Convey("A scope that already has groups is rejected before anything else", func() {
			_, err := grouping.Partition(roster[:2], 1, grouping.WithExistingGroups(3))
			So(errors.Is(err, grouping.ErrAlreadyPartitioned), ShouldBeTrue)

			groups, err := grouping.Partition(roster, 5, grouping.WithExistingGroups(0))
			So(err, ShouldBeNil)
			So(groups, ShouldHaveLength, 2)
		})

		Convey("Roster size is checked before profiles", func() {
			short := roster[:4]
			short[0].Profile = nil
			_, err := grouping.Partition(short, 3)
			So(errors.Is(err, grouping.ErrInsufficientMembers), ShouldBeTrue)
		})
	})
}

func TestCheckSize(t *testing.T) {
	Convey("Given roster and group sizes without profiles", t, func() {
		Convey("Sizes under two are invalid whatever the roster", func() {
			for _, size := range []int{1, 0, -3} {
				So(errors.Is(grouping.CheckSize(100, size), grouping.ErrInvalidGroupSize), ShouldBeTrue)
			}
		})

		Convey("The roster needs the group size plus two members", func() {
			So(errors.Is(grouping.CheckSize(4, 3), grouping.ErrInsufficientMembers), ShouldBeTrue)
			So(errors.Is(grouping.CheckSize(0, 2), grouping.ErrInsufficientMembers), ShouldBeTrue)
			So(grouping.CheckSize(5, 3), ShouldBeNil)
		})

		Convey("It agrees with Prepare", func() {
			roster := workedRoster()
			for _, size := range []int{-1, 2, 5, 8, 9} {
				_, _, prepErr := grouping.Prepare(roster, size)
				So(fmt.Sprint(grouping.CheckSize(len(roster), size)), ShouldEqual, fmt.Sprint(prepErr))
			}
		})
	})
}

func TestPrepare_Ordering(t *testing.T) {
	Convey("Given the worked roster", t, func() {
		roster := workedRoster()
		sorted, global, err := grouping.Prepare(roster, 5)
		So(err, ShouldBeNil)

		Convey("The global average is the element-wise mean", func() {
			So(global.Red(), ShouldAlmostEqual, 1.8, 1e-9)
			So(global.Green(), ShouldAlmostEqual, 1.4, 1e-9)
			So(global.Blue(), ShouldAlmostEqual, 1.3, 1e-9)
			So(global.Yellow(), ShouldAlmostEqual, 1.3, 1e-9)
		})

		Convey("Members are sorted by profile sum, keeping input order on ties", func() {
			ids := make([]string, len(sorted))
			for i, m := range sorted {
				ids[i] = m.ID
			}
			So(ids, ShouldResemble, []string{"m8", "m0", "m1", "m2", "m3", "m4", "m5", "m6", "m7", "m9"})
		})

		Convey("The caller's roster is left in place", func() {
			So(roster[0].ID, ShouldEqual, "m0")
			So(roster[8].ID, ShouldEqual, "m8")
		})
	})
}

func TestSeed(t *testing.T) {
	Convey("Given a prepared roster", t, func() {
		sorted, global, err := grouping.Prepare(workedRoster(), 5)
		So(err, ShouldBeNil)

		Convey("Seeding produces two full groups", func() {
			groups := grouping.Seed(sorted, global, 5)
			So(groups.Sizes(), ShouldResemble, []int{5, 5})
			So(groups.IDs(), ShouldResemble, [][]string{
				{"m8", "m0", "m1", "m2", "m3"},
				{"m4", "m5", "m6", "m7", "m9"},
			})
			So(grouping.TotalDeviation(groups, global), ShouldAlmostEqual, 1.2, 1e-9)
		})

		Convey("Seeding does no worse than splitting the roster in input order", func() {
			roster := workedRoster()
			naive := grouping.Groups{roster[:5], roster[5:]}
			naiveDeviation := grouping.TotalDeviation(naive, global)
			So(naiveDeviation, ShouldAlmostEqual, 1.2, 1e-9)

			seeded := grouping.TotalDeviation(grouping.Seed(sorted, global, 5), global)
			So(seeded, ShouldBeLessThanOrEqualTo, naiveDeviation+1e-9)
		})

		Convey("Seeding is deterministic", func() {
			a := grouping.Seed(sorted, global, 5)
			b := grouping.Seed(sorted, global, 5)
			So(a.IDs(), ShouldResemble, b.IDs())
		})
	})

	Convey("Given a roster of 23 and groups of 4", t, func() {
		sorted, global, err := grouping.Prepare(randomRoster(23, 7), 4)
		So(err, ShouldBeNil)
		groups := grouping.Seed(sorted, global, 4)

		Convey("There are ceil(23/4) groups, none over capacity", func() {
			So(len(groups), ShouldEqual, 6)
			total := 0
			for _, g := range groups {
				So(len(g), ShouldBeLessThanOrEqualTo, 4)
				total += len(g)
			}
			So(total, ShouldEqual, 23)
		})
	})
}

func TestPartition_Properties(t *testing.T) {
	Convey("Given random rosters across sizes", t, func() {
		cases := []struct{ n, size int }{
			{7, 5}, {10, 5}, {12, 3}, {30, 4}, {31, 6}, {50, 7}, {101, 10},
		}
		for _, c := range cases {
			roster := randomRoster(c.n, uint64(c.n*31+c.size))
			res, err := grouping.Run(roster, c.size, grouping.WithRand(grouping.NewRand(1)))
			So(err, ShouldBeNil)

			// Every member lands in exactly one group.
			So(flatten(res.Groups), ShouldResemble, rosterIDs(roster))
			So(len(res.Groups), ShouldEqual, grouping.GroupCount(c.n, c.size))
			for _, g := range res.Groups {
				So(len(g), ShouldBeLessThanOrEqualTo, c.size)
				So(len(g), ShouldBeGreaterThan, 0)
			}
			// Refinement never makes things worse.
			So(res.FinalDeviation, ShouldBeLessThanOrEqualTo, res.SeededDeviation+1e-9)
			So(res.Trials, ShouldEqual, 10*c.n)
		}
	})

	Convey("Given exactly groupSize+2 members", t, func() {
		groups, err := grouping.Partition(randomRoster(7, 99), 5)
		So(err, ShouldBeNil)

		Convey("Exactly two non-empty groups are produced", func() {
			So(len(groups), ShouldEqual, 2)
			So(len(groups[0])+len(groups[1]), ShouldEqual, 7)
			So(len(groups[0]), ShouldBeGreaterThan, 0)
			So(len(groups[1]), ShouldBeGreaterThan, 0)
		})
	})

	Convey("Given the worked roster", t, func() {
		res, err := grouping.Run(workedRoster(), 5, grouping.WithRand(grouping.NewRand(42)))
		So(err, ShouldBeNil)

		Convey("Two groups of five come back and refinement does not regress", func() {
			So(res.Groups.Sizes(), ShouldResemble, []int{5, 5})
			So(res.FinalDeviation, ShouldBeLessThanOrEqualTo, res.SeededDeviation+1e-9)
			So(res.Accepted, ShouldBeLessThanOrEqualTo, res.Trials)
		})
	})

	Convey("Given a fixed random seed", t, func() {
		roster := randomRoster(40, 3)
		a, err := grouping.Partition(roster, 6, grouping.WithRand(grouping.NewRand(5)))
		So(err, ShouldBeNil)
		b, err := grouping.Partition(roster, 6, grouping.WithRand(grouping.NewRand(5)))
		So(err, ShouldBeNil)

		Convey("Two runs agree", func() {
			So(a.IDs(), ShouldResemble, b.IDs())
		})
	})

	Convey("Given zero iterations", t, func() {
		roster := randomRoster(20, 11)
		sorted, global, err := grouping.Prepare(roster, 4)
		So(err, ShouldBeNil)
		seeded := grouping.Seed(sorted, global, 4)

		res, err := grouping.Run(roster, 4, grouping.WithIterations(0))
		So(err, ShouldBeNil)

		Convey("The partition is the seeded one", func() {
			So(res.Groups.IDs(), ShouldResemble, seeded.IDs())
			So(res.Accepted, ShouldEqual, 0)
		})
	})
}

func TestRefine(t *testing.T) {
	Convey("Given a seeded partition", t, func() {
		sorted, global, err := grouping.Prepare(randomRoster(36, 17), 6)
		So(err, ShouldBeNil)
		groups := grouping.Seed(sorted, global, 6)
		before := grouping.TotalDeviation(groups, global)
		sizes := groups.Sizes()

		refined := grouping.Refine(groups, global, 2000, grouping.NewRand(9))

		Convey("Sizes are untouched and the deviation does not grow", func() {
			So(refined.Sizes(), ShouldResemble, sizes)
			So(grouping.TotalDeviation(refined, global), ShouldBeLessThanOrEqualTo, before+1e-9)
		})
	})

	Convey("Given a single group", t, func() {
		g := grouping.Groups{{member("a", 1, 1, 1, 1), member("b", 2, 2, 2, 2)}}
		out := grouping.Refine(g, insight.New(1.5, 1.5, 1.5, 1.5), 100, grouping.NewRand(1))

		Convey("It is returned unchanged", func() {
			So(out.IDs(), ShouldResemble, [][]string{{"a", "b"}})
		})
	})

	Convey("Given an empty group among the partition", t, func() {
		g := grouping.Groups{
			{member("a", 6, 0, 0, 0), member("b", 0, 6, 0, 0)},
			{},
		}
		out := grouping.Refine(g, insight.New(3, 3, 0, 0), 50, grouping.NewRand(2))

		Convey("Trials touching it are skipped", func() {
			So(out.IDs(), ShouldResemble, [][]string{{"a", "b"}, {}})
		})
	})
}

func TestSeedingMode(t *testing.T) {
	Convey("Seeding modes parse and print", t, func() {
		m, err := grouping.ParseSeedingMode("balanced")
		So(err, ShouldBeNil)
		So(m, ShouldEqual, grouping.SeedingBalanced)
		So(m.String(), ShouldEqual, "balanced")

		m, err = grouping.ParseSeedingMode("")
		So(err, ShouldBeNil)
		So(m, ShouldEqual, grouping.SeedingLegacy)

		_, err = grouping.ParseSeedingMode("random")
		So(err, ShouldNotBeNil)
	})

	Convey("Balanced seeding keeps every invariant", t, func() {
		roster := randomRoster(29, 8)
		groups, err := grouping.Partition(roster, 5,
			grouping.WithSeedingMode(grouping.SeedingBalanced),
			grouping.WithRand(grouping.NewRand(4)))
		So(err, ShouldBeNil)
		So(flatten(groups), ShouldResemble, rosterIDs(roster))
		So(len(groups), ShouldEqual, 6)
	})
}
