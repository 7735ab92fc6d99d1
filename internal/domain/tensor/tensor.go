// Package tensor provides dense numeric arrays used by the picking pipeline.
//
// Scores arrive as a 4-D array with axes (batch, channel, time, station).
// Values are stored row-major in a flat slice; all accessors are bounds-checked
// by slice indexing only, so callers are expected to stay within Dims.
package tensor

import (
	"fmt"
	"math"
)

// Dense4D is a dense 4-D array with axes (batch, channel, time, station).
type Dense4D struct {
	nb, nc, nt, ns int
	data           []float64
}

// NewDense4D allocates a zero-filled tensor with the given dimensions.
func NewDense4D(nb, nc, nt, ns int) (*Dense4D, error) {
	if nb < 1 || nc < 1 || nt < 1 || ns < 1 {
		return nil, fmt.Errorf("%w: (%d, %d, %d, %d)", ErrBadShape, nb, nc, nt, ns)
	}
	return &Dense4D{
		nb:   nb,
		nc:   nc,
		nt:   nt,
		ns:   ns,
		data: make([]float64, nb*nc*nt*ns),
	}, nil
}

// FromSlice wraps a flat row-major slice as a Dense4D. The slice is not copied.
func FromSlice(nb, nc, nt, ns int, data []float64) (*Dense4D, error) {
	if nb < 1 || nc < 1 || nt < 1 || ns < 1 {
		return nil, fmt.Errorf("%w: (%d, %d, %d, %d)", ErrBadShape, nb, nc, nt, ns)
	}
	if len(data) != nb*nc*nt*ns {
		return nil, fmt.Errorf("%w: have %d values, want %d", ErrBadShape, len(data), nb*nc*nt*ns)
	}
	return &Dense4D{nb: nb, nc: nc, nt: nt, ns: ns, data: data}, nil
}

// FromNested copies a nested slice, as decoded from JSON, into a Dense4D.
// Every inner slice must have the same length as its siblings.
func FromNested(v [][][][]float64) (*Dense4D, error) {
	if len(v) == 0 || len(v[0]) == 0 || len(v[0][0]) == 0 || len(v[0][0][0]) == 0 {
		return nil, fmt.Errorf("%w: empty axis", ErrBadShape)
	}
	nb, nc, nt, ns := len(v), len(v[0]), len(v[0][0]), len(v[0][0][0])

	t, err := NewDense4D(nb, nc, nt, ns)
	if err != nil {
		return nil, err
	}
	for b, batch := range v {
		if len(batch) != nc {
			return nil, fmt.Errorf("%w: ragged channel axis at batch %d", ErrBadShape, b)
		}
		for c, chans := range batch {
			if len(chans) != nt {
				return nil, fmt.Errorf("%w: ragged time axis at (%d, %d)", ErrBadShape, b, c)
			}
			for ti, samples := range chans {
				if len(samples) != ns {
					return nil, fmt.Errorf("%w: ragged station axis at (%d, %d, %d)", ErrBadShape, b, c, ti)
				}
				copy(t.data[t.index(b, c, ti, 0):], samples)
			}
		}
	}
	return t, nil
}

// Dims returns the tensor dimensions (batch, channel, time, station).
func (t *Dense4D) Dims() (nb, nc, nt, ns int) {
	return t.nb, t.nc, t.nt, t.ns
}

func (t *Dense4D) index(b, c, ti, s int) int {
	return ((b*t.nc+c)*t.nt+ti)*t.ns + s
}

// At returns the value at (batch, channel, time, station).
func (t *Dense4D) At(b, c, ti, s int) float64 {
	return t.data[t.index(b, c, ti, s)]
}

// Set stores a value at (batch, channel, time, station).
func (t *Dense4D) Set(b, c, ti, s int, v float64) {
	t.data[t.index(b, c, ti, s)] = v
}

// Dense3D is a dense 3-D array with axes (batch, time, station).
type Dense3D struct {
	nb, nt, ns int
	data       []float64
}

// NewDense3D allocates a zero-filled 3-D array.
func NewDense3D(nb, nt, ns int) (*Dense3D, error) {
	if nb < 1 || nt < 1 || ns < 1 {
		return nil, fmt.Errorf("%w: (%d, %d, %d)", ErrBadShape, nb, nt, ns)
	}
	return &Dense3D{nb: nb, nt: nt, ns: ns, data: make([]float64, nb*nt*ns)}, nil
}

// Dims returns the array dimensions (batch, time, station).
func (t *Dense3D) Dims() (nb, nt, ns int) {
	return t.nb, t.nt, t.ns
}

// At returns the value at (batch, time, station).
func (t *Dense3D) At(b, ti, s int) float64 {
	return t.data[(b*t.nt+ti)*t.ns+s]
}

// Set stores a value at (batch, time, station).
func (t *Dense3D) Set(b, ti, s int, v float64) {
	t.data[(b*t.nt+ti)*t.ns+s] = v
}

// MaxAbsChannels collapses the channel axis of a waveform tensor into a
// per-sample envelope: the maximum absolute value across input channels at
// each (batch, time, station).
func MaxAbsChannels(w *Dense4D) *Dense3D {
	env := &Dense3D{nb: w.nb, nt: w.nt, ns: w.ns, data: make([]float64, w.nb*w.nt*w.ns)}
	for b := 0; b < w.nb; b++ {
		for ti := 0; ti < w.nt; ti++ {
			for s := 0; s < w.ns; s++ {
				m := 0.0
				for c := 0; c < w.nc; c++ {
					if v := math.Abs(w.At(b, c, ti, s)); v > m {
						m = v
					}
				}
				env.Set(b, ti, s, m)
			}
		}
	}
	return env
}
