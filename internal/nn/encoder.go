package nn

import (
	"fmt"
)

// NumericSpec holds standardisation parameters for numeric inputs.
type NumericSpec struct {
	Features []string  `json:"features"`
	Mean     []float64 `json:"mean"`
	Scale    []float64 `json:"scale"`
}

// CategoricalSpec lists the categories of one one-hot encoded input.
type CategoricalSpec struct {
	Feature    string   `json:"feature"`
	Categories []string `json:"categories"`
}

// Encoder turns named features into the model's input vector: the numeric
// block first, standardised, then one one-hot block per categorical input.
type Encoder struct {
	InputDim    int               `json:"input_dim"`
	Numeric     NumericSpec       `json:"numeric"`
	Categorical []CategoricalSpec `json:"categorical"`
}

// FeatureSource supplies raw feature values by name.
type FeatureSource interface {
	Numeric(name string) float64
	Categorical(name string) string
}

// Width is the length of the vectors Encode produces.
func (e *Encoder) Width() int {
	n := len(e.Numeric.Features)
	for _, c := range e.Categorical {
		n += len(c.Categories)
	}
	return n
}

// Validate checks the encoder is internally consistent.
func (e *Encoder) Validate() error {
	if len(e.Numeric.Mean) != len(e.Numeric.Features) || len(e.Numeric.Scale) != len(e.Numeric.Features) {
		return fmt.Errorf("numeric encoder has %d features, %d means and %d scales",
			len(e.Numeric.Features), len(e.Numeric.Mean), len(e.Numeric.Scale))
	}
	if e.InputDim != 0 && e.InputDim != e.Width() {
		return fmt.Errorf("encoder declares input_dim %d but encodes %d values", e.InputDim, e.Width())
	}
	return nil
}

// Encode builds the input vector for src. A scale of zero subtracts the
// mean only. Categorical values outside the known categories encode as all
// zeros.
func (e *Encoder) Encode(src FeatureSource) []float64 {
	out := make([]float64, 0, e.Width())
	for i, name := range e.Numeric.Features {
		v := src.Numeric(name) - e.Numeric.Mean[i]
		if s := e.Numeric.Scale[i]; s != 0 {
			v /= s
		}
		out = append(out, v)
	}
	for _, c := range e.Categorical {
		v := src.Categorical(c.Feature)
		for _, cat := range c.Categories {
			if v == cat {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		}
	}
	return out
}
