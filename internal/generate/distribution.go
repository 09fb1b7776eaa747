package generate

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/koustreak/datri-datasets/internal/errs"
	"github.com/koustreak/datri-datasets/internal/record"
	"github.com/koustreak/datri-datasets/internal/schema"
)

// Distribution is a parametric family a column draws its values from.
type Distribution interface {
	// Type is the field type of the values drawn.
	Type() schema.FieldType

	// Validate checks the parameters.
	Validate() error

	// Draw returns the value for row (0-based) using r.
	Draw(r *rand.Rand, row int) record.Value
}

// Sequence yields Start, Start+1, ... and consumes no randomness.
type Sequence struct {
	Start int64
}

func (Sequence) Type() schema.FieldType { return schema.Integer }
func (Sequence) Validate() error        { return nil }

func (d Sequence) Draw(_ *rand.Rand, row int) record.Value {
	return record.Int(d.Start + int64(row))
}

// Uniform draws floats in [Low, High).
type Uniform struct {
	Low, High float64
}

func (Uniform) Type() schema.FieldType { return schema.Float }

func (d Uniform) Validate() error {
	if !(d.Low < d.High) {
		return invalid("uniform: low %v must be below high %v", d.Low, d.High)
	}
	return nil
}

func (d Uniform) Draw(r *rand.Rand, _ int) record.Value {
	return record.Float(d.Low + r.Float64()*(d.High-d.Low))
}

// UniformInt draws integers in [Low, High] inclusive.
type UniformInt struct {
	Low, High int64
}

func (UniformInt) Type() schema.FieldType { return schema.Integer }

func (d UniformInt) Validate() error {
	if d.Low > d.High {
		return invalid("uniform_int: low %d exceeds high %d", d.Low, d.High)
	}
	if d.High-d.Low < 0 || d.High-d.Low == math.MaxInt64 {
		return invalid("uniform_int: range [%d, %d] too wide", d.Low, d.High)
	}
	return nil
}

func (d UniformInt) Draw(r *rand.Rand, _ int) record.Value {
	return record.Int(d.Low + r.Int64N(d.High-d.Low+1))
}

// Normal draws floats from N(Mean, StdDev²).
type Normal struct {
	Mean, StdDev float64
}

func (Normal) Type() schema.FieldType { return schema.Float }

func (d Normal) Validate() error {
	if d.StdDev < 0 || math.IsNaN(d.StdDev) {
		return invalid("normal: stddev %v must be non-negative", d.StdDev)
	}
	return nil
}

func (d Normal) Draw(r *rand.Rand, _ int) record.Value {
	return record.Float(d.Mean + d.StdDev*r.NormFloat64())
}

// Poisson draws event counts with mean Lambda.
type Poisson struct {
	Lambda float64
}

func (Poisson) Type() schema.FieldType { return schema.Integer }

func (d Poisson) Validate() error {
	if !(d.Lambda > 0) || math.IsInf(d.Lambda, 0) {
		return invalid("poisson: lambda %v must be positive", d.Lambda)
	}
	return nil
}

// Draw uses Knuth's multiplication method for small Lambda and a rounded
// normal approximation above it.
func (d Poisson) Draw(r *rand.Rand, _ int) record.Value {
	if d.Lambda < 30 {
		limit := math.Exp(-d.Lambda)
		k, p := int64(0), r.Float64()
		for p > limit {
			k++
			p *= r.Float64()
		}
		return record.Int(k)
	}
	x := math.Round(d.Lambda + math.Sqrt(d.Lambda)*r.NormFloat64())
	return record.Int(int64(max(x, 0)))
}

// Bernoulli draws 1 with probability P, else 0.
type Bernoulli struct {
	P float64
}

func (Bernoulli) Type() schema.FieldType { return schema.Integer }

func (d Bernoulli) Validate() error {
	if !(d.P >= 0 && d.P <= 1) {
		return invalid("bernoulli: p %v outside [0, 1]", d.P)
	}
	return nil
}

func (d Bernoulli) Draw(r *rand.Rand, _ int) record.Value {
	if r.Float64() < d.P {
		return record.Int(1)
	}
	return record.Int(0)
}

// Categorical draws one of Levels. Weights are relative; nil means uniform.
type Categorical struct {
	Levels  []string
	Weights []float64
}

func (Categorical) Type() schema.FieldType { return schema.Text }

func (d Categorical) Validate() error {
	if len(d.Levels) == 0 {
		return invalid("categorical: no levels")
	}
	if d.Weights == nil {
		return nil
	}
	if len(d.Weights) != len(d.Levels) {
		return invalid("categorical: %d weights for %d levels", len(d.Weights), len(d.Levels))
	}
	var sum float64
	for _, w := range d.Weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return invalid("categorical: weight %v must be finite and non-negative", w)
		}
		sum += w
	}
	if sum == 0 {
		return invalid("categorical: weights sum to zero")
	}
	return nil
}

func (d Categorical) Draw(r *rand.Rand, _ int) record.Value {
	if d.Weights == nil {
		return record.Text(d.Levels[r.IntN(len(d.Levels))])
	}
	var sum float64
	for _, w := range d.Weights {
		sum += w
	}
	u := r.Float64() * sum
	for i, w := range d.Weights {
		if u < w {
			return record.Text(d.Levels[i])
		}
		u -= w
	}
	// rounding can leave u just above the last weight
	for i := len(d.Weights) - 1; i >= 0; i-- {
		if d.Weights[i] > 0 {
			return record.Text(d.Levels[i])
		}
	}
	return record.Text(d.Levels[len(d.Levels)-1])
}

// Params carries the parameters of any family, as read from configuration.
// Only the members the family uses are read.
type Params struct {
	Start   int64
	Low     float64
	High    float64
	Mean    float64
	StdDev  float64
	Lambda  float64
	P       float64
	Levels  []string
	Weights []float64
}

// Families lists the names accepted by NewDistribution.
var Families = []string{"sequence", "uniform", "uniform_int", "normal", "poisson", "bernoulli", "categorical"}

// NewDistribution builds a validated distribution from a family name.
func NewDistribution(family string, p Params) (Distribution, error) {
	var d Distribution
	switch strings.ToLower(strings.TrimSpace(family)) {
	case "sequence":
		d = Sequence{Start: p.Start}
	case "uniform":
		d = Uniform{Low: p.Low, High: p.High}
	case "uniform_int":
		if p.Low != math.Trunc(p.Low) || p.High != math.Trunc(p.High) {
			return nil, invalid("uniform_int: bounds %v, %v must be whole numbers", p.Low, p.High)
		}
		d = UniformInt{Low: int64(p.Low), High: int64(p.High)}
	case "normal":
		d = Normal{Mean: p.Mean, StdDev: p.StdDev}
	case "poisson":
		d = Poisson{Lambda: p.Lambda}
	case "bernoulli":
		d = Bernoulli{P: p.P}
	case "categorical":
		d = Categorical{Levels: p.Levels, Weights: p.Weights}
	default:
		return nil, invalid("unknown distribution %q (want one of %s)", family, strings.Join(Families, ", "))
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func invalid(format string, args ...any) error {
	return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf(format, args...))
}
