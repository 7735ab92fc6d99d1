package picks

import (
	"fmt"

	"github.com/quakeflow/picker/internal/domain/tensor"
)

// Fallback anchor when a batch element carries no begin time.
const epochAnchor = "1970-01-01T00:00:00.000"

// Default sample interval in seconds per sample.
const defaultSampleInterval = 0.01

// Interval is the sample interval: either one scalar broadcast across the
// batch or one value per batch element. The zero value resolves to the
// default interval for every element.
type Interval struct {
	scalar   float64
	perBatch []float64
	set      bool
}

// Scalar returns an Interval broadcasting one value across the batch.
func Scalar(dt float64) Interval {
	return Interval{scalar: dt, set: true}
}

// PerBatch returns an Interval with one value per batch element.
func PerBatch(dts []float64) Interval {
	return Interval{perBatch: dts, set: true}
}

// resolve expands the interval to one value per batch element.
func (iv Interval) resolve(nb int) ([]float64, error) {
	out := make([]float64, nb)
	switch {
	case !iv.set:
		for i := range out {
			out[i] = defaultSampleInterval
		}
	case iv.perBatch != nil:
		if len(iv.perBatch) != nb {
			return nil, fmt.Errorf("%w: %d sample intervals for %d batch elements",
				ErrMetadataLength, len(iv.perBatch), nb)
		}
		copy(out, iv.perBatch)
	default:
		for i := range out {
			out[i] = iv.scalar
		}
	}
	for i, dt := range out {
		if dt <= 0 {
			return nil, fmt.Errorf("%w: sample interval %g at batch %d", ErrBadInterval, dt, i)
		}
	}
	return out, nil
}

// Metadata carries the per-batch context for pick extraction. Every field is
// optional with a documented default; fields are resolved once at the entry
// boundary of Extract.
type Metadata struct {
	// FileNames identifies each batch element. Default: zero-padded batch
	// index "%04d".
	FileNames []string

	// BeginTimes holds the anchor timestamp per batch element, ISO-8601 with
	// an optional trailing "Z" (stripped before parsing). Absent or empty
	// entries default to the epoch.
	BeginTimes []string

	// StationIDs is indexed [station][batch]. Default: zero-padded
	// station index plus BeginChannelIndex, "%04d".
	StationIDs [][]string

	// SampleInterval is seconds per sample. Default: 0.01.
	SampleInterval Interval

	// BeginTimeIndex is the absolute sample offset of each batch element's
	// patch. Default 0.
	BeginTimeIndex []int

	// BeginChannelIndex is the spatial offset of each batch element's patch.
	// Default 0.
	BeginChannelIndex []int

	// Polarity is the optional polarity score tensor, read at
	// (batch, 0, time, station). When nil, picks carry no polarity.
	Polarity *tensor.Dense4D

	// Waveform is the optional raw waveform tensor sharing the score time
	// axis. When nil, picks carry no amplitude.
	Waveform *tensor.Dense4D
}

// Identifier resolves the unit-of-work identifier for batch element i:
// the supplied file name, or the zero-padded batch index.
func (m *Metadata) Identifier(i int) string {
	if m.FileNames == nil {
		return fmt.Sprintf("%04d", i)
	}
	return m.FileNames[i]
}

// beginTime resolves the raw anchor string for batch element i.
func (m *Metadata) beginTime(i int) string {
	if m.BeginTimes == nil || m.BeginTimes[i] == "" {
		return epochAnchor
	}
	return m.BeginTimes[i]
}

// offsets resolves an optional per-batch integer array to concrete values.
func offsets(vals []int, nb int) []int {
	if vals == nil {
		return make([]int, nb)
	}
	return vals
}

// validate checks that all supplied arrays match the batch and station counts.
func (m *Metadata) validate(nb, ns int) error {
	if m.FileNames != nil && len(m.FileNames) != nb {
		return fmt.Errorf("%w: %d file names for %d batch elements", ErrMetadataLength, len(m.FileNames), nb)
	}
	if m.BeginTimes != nil && len(m.BeginTimes) != nb {
		return fmt.Errorf("%w: %d begin times for %d batch elements", ErrMetadataLength, len(m.BeginTimes), nb)
	}
	if m.BeginTimeIndex != nil && len(m.BeginTimeIndex) != nb {
		return fmt.Errorf("%w: %d time offsets for %d batch elements", ErrMetadataLength, len(m.BeginTimeIndex), nb)
	}
	if m.BeginChannelIndex != nil && len(m.BeginChannelIndex) != nb {
		return fmt.Errorf("%w: %d channel offsets for %d batch elements", ErrMetadataLength, len(m.BeginChannelIndex), nb)
	}
	if m.StationIDs != nil {
		if len(m.StationIDs) != ns {
			return fmt.Errorf("%w: %d station id rows for %d stations", ErrMetadataLength, len(m.StationIDs), ns)
		}
		for k, row := range m.StationIDs {
			if len(row) != nb {
				return fmt.Errorf("%w: %d station ids for %d batch elements at station %d",
					ErrMetadataLength, len(row), nb, k)
			}
		}
	}
	return nil
}
