package springfile

import (
	"fmt"
	"regexp"
	"strconv"
)

var tolerancePattern = regexp.MustCompile(`^\s*([-+]?\d+(?:\.\d+)?)\s*\(\s*([-+]?\d+(?:\.\d+)?)\s*,\s*([-+]?\d+(?:\.\d+)?)\s*\)\s*$`)

// ToleranceSpec is a nominal value with an inclusive [Low, High] acceptance range
type ToleranceSpec struct {
	Nominal float64
	Low     float64
	High    float64
}

// ParseTolerance reads the NOM(LOW,HIGH) form, e.g. "2799(2659,2939)"
func ParseTolerance(s string) (ToleranceSpec, error) {
	m := tolerancePattern.FindStringSubmatch(s)
	if m == nil {
		return ToleranceSpec{}, fmt.Errorf("tolerance %q is not in NOM(LOW,HIGH) form", s)
	}

	var values [3]float64
	for i := range values {
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return ToleranceSpec{}, fmt.Errorf("tolerance %q: %w", s, err)
		}
		values[i] = v
	}
	return ToleranceSpec{Nominal: values[0], Low: values[1], High: values[2]}, nil
}

// IsTolerance reports whether s is in NOM(LOW,HIGH) form
func IsTolerance(s string) bool {
	return tolerancePattern.MatchString(s)
}

func (t ToleranceSpec) String() string {
	return formatNumber(t.Nominal) + "(" + formatNumber(t.Low) + "," + formatNumber(t.High) + ")"
}

// Contains reports whether v lies inside the inclusive bounds
func (t ToleranceSpec) Contains(v float64) bool {
	return v >= t.Low && v <= t.High
}
