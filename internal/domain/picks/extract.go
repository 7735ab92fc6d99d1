package picks

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/quakeflow/picker/internal/domain/peaks"
	"github.com/quakeflow/picker/internal/domain/tensor"
)

// Default extractor configuration constants.
const (
	defaultMinScore = 0.3
)

// Default phase labels and amplitude window lengths in seconds.
var (
	defaultPhases     = []string{"P", "S"}
	defaultAmpWindows = []float64{10, 5}
)

// Timestamp layouts accepted for anchor times, tried in order.
var anchorLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// Millisecond-precision output layout for pick times.
const pickTimeLayout = "2006-01-02T15:04:05.000"

// Extractor converts surviving peaks into ordered pick records. It is a pure
// computation over its inputs: no shared state, no I/O, safe for concurrent
// use from any number of workers.
type Extractor struct {
	phases     []string
	minScore   float64
	ampWindows []float64 // seconds, one per phase (broadcast from one value)
}

// NewExtractor creates an extractor with configuration options.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		phases:     defaultPhases,
		minScore:   defaultMinScore,
		ampWindows: defaultAmpWindows,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// MinScore returns the probability threshold. Peaks must strictly exceed it
// to produce a pick.
func (e *Extractor) MinScore() float64 { return e.minScore }

// Extract materializes picks from detection output, one list per batch
// element. Picks appear in encounter order: class-major, then station-major,
// then ascending time within a station. Callers needing a single time-sorted
// stream re-sort before persisting.
func (e *Extractor) Extract(res *peaks.Result, meta Metadata) ([][]Pick, error) {
	nb := len(res.Groups)
	if nb == 0 {
		return nil, nil
	}
	ns := 0
	if len(res.Groups[0]) > 0 {
		ns = len(res.Groups[0][0])
	}

	if err := meta.validate(nb, ns); err != nil {
		return nil, err
	}
	dts, err := meta.SampleInterval.resolve(nb)
	if err != nil {
		return nil, err
	}
	beginTimeIndex := offsets(meta.BeginTimeIndex, nb)
	beginChannelIndex := offsets(meta.BeginChannelIndex, nb)

	ampWindows, err := e.broadcastAmpWindows()
	if err != nil {
		return nil, err
	}

	var envelope *tensor.Dense3D
	if meta.Waveform != nil {
		envelope = tensor.MaxAbsChannels(meta.Waveform)
	}

	out := make([][]Pick, nb)
	for i := 0; i < nb; i++ {
		anchor, err := parseAnchor(meta.beginTime(i))
		if err != nil {
			return nil, err
		}

		batchPicks := []Pick{}
		for j, stations := range res.Groups[i] {
			if j >= len(e.phases) {
				return nil, fmt.Errorf("%w: class %d with %d phase labels", ErrPhaseCount, j, len(e.phases))
			}

			ampSamples := 0
			if envelope != nil {
				ampSamples = int(ampWindows[j] / dts[i])
			}

			for k, group := range stations {
				sorted := make([]peaks.Peak, len(group))
				copy(sorted, group)
				sort.SliceStable(sorted, func(a, b int) bool {
					return sorted[a].Index < sorted[b].Index
				})

				for ii, p := range sorted {
					if !(p.Score > e.minScore) {
						continue
					}

					pick := Pick{
						StationID:  e.stationID(&meta, i, k, beginChannelIndex[i]),
						PhaseIndex: p.Index + beginTimeIndex[i],
						PhaseTime:  pickTime(anchor, p.Index, dts[i]),
						PhaseScore: fmt.Sprintf("%.3f", p.Score),
						PhaseType:  e.phases[j],
					}

					if meta.Polarity != nil {
						pick.PhasePolarity = fmt.Sprintf("%.3f", meta.Polarity.At(i, 0, p.Index, k))
					}

					if envelope != nil {
						pick.PhaseAmplitude = amplitude(envelope, i, k, ii, sorted, ampSamples)
					}

					batchPicks = append(batchPicks, pick)
				}
			}
		}
		out[i] = batchPicks
	}
	return out, nil
}

// stationID resolves the station identifier for (batch i, station k).
func (e *Extractor) stationID(meta *Metadata, i, k, channelOffset int) string {
	if meta.StationIDs == nil {
		return fmt.Sprintf("%04d", k+channelOffset)
	}
	return meta.StationIDs[k][i]
}

// broadcastAmpWindows expands a single window length to all phases.
func (e *Extractor) broadcastAmpWindows() ([]float64, error) {
	switch {
	case len(e.ampWindows) == 1:
		w := make([]float64, len(e.phases))
		for i := range w {
			w[i] = e.ampWindows[0]
		}
		return w, nil
	case len(e.ampWindows) >= len(e.phases):
		return e.ampWindows, nil
	default:
		return nil, fmt.Errorf("%w: %d amplitude windows for %d phases",
			ErrAmpWindowCount, len(e.ampWindows), len(e.phases))
	}
}

// parseAnchor parses an ISO-8601 anchor with an optional trailing Z. No
// timezone arithmetic is performed beyond offset addition.
func parseAnchor(s string) (time.Time, error) {
	s = strings.TrimSuffix(s, "Z")
	for _, layout := range anchorLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
}

// pickTime renders the arrival time at millisecond precision.
func pickTime(anchor time.Time, index int, dt float64) string {
	offset := time.Duration(math.Round(float64(index) * dt * float64(time.Second)))
	return anchor.Add(offset).Format(pickTimeLayout)
}

// amplitude reads the maximum envelope value over the half-open window
// starting at the pick. The window is truncated by the next peak in the same
// group; the last peak gets the full nominal length.
func amplitude(env *tensor.Dense3D, i, k, ii int, sorted []peaks.Peak, ampSamples int) string {
	_, nt, _ := env.Dims()
	j1 := sorted[ii].Index
	j2 := j1 + ampSamples
	if ii < len(sorted)-1 && sorted[ii+1].Index < j2 {
		j2 = sorted[ii+1].Index
	}
	if j2 > nt {
		j2 = nt
	}
	if j2 <= j1 {
		j2 = j1 + 1 // degenerate window still covers the pick sample
	}
	m := 0.0
	for t := j1; t < j2; t++ {
		if v := env.At(i, t, k); v > m {
			m = v
		}
	}
	return fmt.Sprintf("%.3e", m)
}
