// Package insight defines the four-energy profile vector and the arithmetic
// the grouping engine performs on it.
package insight

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Dimensions is the number of energy components in a profile.
const Dimensions = 4

// Profile is a member's energy vector. The components are stored in the
// order Red, Green, Blue, Yellow; the grouping engine treats them as an
// opaque Euclidean vector.
type Profile [Dimensions]float64

// New builds a profile from its four named energies.
func New(red, green, blue, yellow float64) Profile {
	return Profile{red, green, blue, yellow}
}

// Red returns the first energy component.
func (p Profile) Red() float64 { return p[0] }

// Green returns the second energy component.
func (p Profile) Green() float64 { return p[1] }

// Blue returns the third energy component.
func (p Profile) Blue() float64 { return p[2] }

// Yellow returns the fourth energy component.
func (p Profile) Yellow() float64 { return p[3] }

// Add returns p + q.
func (p Profile) Add(q Profile) Profile {
	floats.Add(p[:], q[:])
	return p
}

// Sub returns p - q.
func (p Profile) Sub(q Profile) Profile {
	floats.Sub(p[:], q[:])
	return p
}

// Div returns p scaled by 1/d. Division by zero yields the zero vector.
func (p Profile) Div(d float64) Profile {
	if d == 0 {
		return Profile{}
	}
	for i := range p {
		p[i] /= d
	}
	return p
}

// Abs returns the element-wise absolute value of p.
func (p Profile) Abs() Profile {
	for i := range p {
		p[i] = math.Abs(p[i])
	}
	return p
}

// AbsDiff returns |p - q| element-wise.
func (p Profile) AbsDiff(q Profile) Profile {
	return p.Sub(q).Abs()
}

// Sum returns the sum of the components.
func (p Profile) Sum() float64 {
	return floats.Sum(p[:])
}

// Distance returns the Euclidean distance between p and q.
func (p Profile) Distance(q Profile) float64 {
	return floats.Distance(p[:], q[:], 2)
}

// Validate reports whether every component is finite and non-negative.
func (p Profile) Validate() error {
	for i, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: component %d is not finite", ErrInvalidProfile, i)
		}
		if v < 0 {
			return fmt.Errorf("%w: component %d is negative", ErrInvalidProfile, i)
		}
	}
	return nil
}

// Within reports whether every component lies in [lo, hi].
func (p Profile) Within(lo, hi float64) bool {
	for _, v := range p {
		if v < lo || v > hi {
			return false
		}
	}
	return true
}

// Mean returns the element-wise mean of profiles, or the zero vector when
// profiles is empty.
func Mean(profiles ...Profile) Profile {
	var sum Profile
	for _, p := range profiles {
		sum = sum.Add(p)
	}
	return sum.Div(float64(len(profiles)))
}
