package sequence

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrUnsatisfiable is returned when a constraint admits no value.
var ErrUnsatisfiable = errors.New("sequence: unsatisfiable constraint")

// Range is an inclusive bound on a 32-bit field.
type Range struct {
	Min uint32
	Max uint32
}

// Validate reports whether at least one value satisfies the range.
func (r Range) Validate() error {
	if r.Min > r.Max {
		return fmt.Errorf("%w: min 0x%08x > max 0x%08x", ErrUnsatisfiable, r.Min, r.Max)
	}
	return nil
}

// Draw picks a value uniformly from [Min, Max].
func (r Range) Draw(rng *rand.Rand) (uint32, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	span := int64(r.Max-r.Min) + 1
	return r.Min + uint32(rng.Int63n(span)), nil
}

// DelayRange bounds the idle edges inserted before a request.
type DelayRange struct {
	Min int
	Max int
}

// Draw picks a delay uniformly from [Min, Max].
func (r DelayRange) Draw(rng *rand.Rand) (int, error) {
	if r.Min < 0 || r.Min > r.Max {
		return 0, fmt.Errorf("%w: delay range [%d,%d]", ErrUnsatisfiable, r.Min, r.Max)
	}
	return r.Min + rng.Intn(r.Max-r.Min+1), nil
}
