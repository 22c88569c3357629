package insight_test

import (
	"errors"
	"math"
	"testing"

	"github.com/groupify/groupify/internal/domain/insight"
	. "github.com/smartystreets/goconvey/convey"
)

func TestProfileArithmetic(t *testing.T) {
	Convey("Given two profiles", t, func() {
		p := insight.New(1, 2, 3, 4)
		q := insight.New(4, 3, 2, 1)

		Convey("Add and Sub are element-wise and leave the operands alone", func() {
			So(p.Add(q), ShouldEqual, insight.New(5, 5, 5, 5))
			So(p.Sub(q), ShouldEqual, insight.New(-3, -1, 1, 3))
			So(p, ShouldEqual, insight.New(1, 2, 3, 4))
		})

		Convey("AbsDiff is symmetric", func() {
			So(p.AbsDiff(q), ShouldEqual, insight.New(3, 1, 1, 3))
			So(q.AbsDiff(p), ShouldEqual, p.AbsDiff(q))
		})

		Convey("Sum adds the components", func() {
			So(p.Sum(), ShouldEqual, 10)
		})

		Convey("Div scales and treats zero as the zero vector", func() {
			So(p.Add(q).Div(5), ShouldEqual, insight.New(1, 1, 1, 1))
			So(p.Div(0), ShouldEqual, insight.Profile{})
		})

		Convey("Distance is Euclidean", func() {
			So(insight.New(0, 0, 0, 0).Distance(insight.New(6, 6, 6, 6)), ShouldAlmostEqual, 12, 1e-9)
			So(p.Distance(q), ShouldAlmostEqual, math.Sqrt(20), 1e-9)
		})

		Convey("Accessors expose the named energies", func() {
			So(p.Red(), ShouldEqual, 1)
			So(p.Green(), ShouldEqual, 2)
			So(p.Blue(), ShouldEqual, 3)
			So(p.Yellow(), ShouldEqual, 4)
		})
	})
}

func TestMean(t *testing.T) {
	Convey("Mean of nothing is the zero vector", t, func() {
		So(insight.Mean(), ShouldEqual, insight.Profile{})
	})

	Convey("Mean averages element-wise", t, func() {
		m := insight.Mean(insight.New(1, 1, 1, 1), insight.New(3, 3, 3, 3))
		So(m, ShouldEqual, insight.New(2, 2, 2, 2))
	})
}

func TestValidate(t *testing.T) {
	Convey("Given profiles to validate", t, func() {
		So(insight.New(0, 6, 2.5, 100).Validate(), ShouldBeNil)

		err := insight.New(1, -0.5, 0, 0).Validate()
		So(errors.Is(err, insight.ErrInvalidProfile), ShouldBeTrue)

		err = insight.New(math.NaN(), 0, 0, 0).Validate()
		So(errors.Is(err, insight.ErrInvalidProfile), ShouldBeTrue)

		err = insight.New(0, 0, math.Inf(1), 0).Validate()
		So(errors.Is(err, insight.ErrInvalidProfile), ShouldBeTrue)
	})

	Convey("Within checks inclusive bounds", t, func() {
		So(insight.New(0, 6, 3, 1).Within(0, 6), ShouldBeTrue)
		So(insight.New(0, 6.1, 3, 1).Within(0, 6), ShouldBeFalse)
	})
}
