// Package peaks implements windowed non-maximum suppression and top-K
// selection over phase score tensors.
//
// A sample survives suppression when its score equals the maximum score in a
// centered window along the time axis. Flat maxima keep every equal-valued
// sample; suppression is deliberately non-strict so adjacent ties are not
// collapsed to a single argmax. The probability threshold is NOT applied
// here; rejection below vmin happens during pick extraction.
package peaks

import (
	"fmt"
	"math"
	"sort"

	"github.com/quakeflow/picker/internal/domain/tensor"
)

// Default detector configuration constants.
const (
	defaultKernel = 101
	defaultStride = 1

	// Adaptive top-K default: roughly one peak per 300 samples, minimum 3.
	topKPerSamples = 10.0 / 3000.0
	topKMinimum    = 3
)

// Peak is one surviving local maximum at a time index.
type Peak struct {
	Index int
	Score float64
}

// Result holds the surviving top-K peaks per (batch, class, station).
// For a multi-channel tensor, class 0 of the result corresponds to channel 1
// of the input (the background channel is dropped); a single-channel tensor
// keeps its only channel. Peaks within a group are NOT sorted by time.
type Result struct {
	// Groups is indexed [batch][class][station].
	Groups [][][][]Peak
}

// NumPeaks returns the total number of surviving peaks across all groups.
func (r *Result) NumPeaks() int {
	n := 0
	for _, classes := range r.Groups {
		for _, stations := range classes {
			for _, group := range stations {
				n += len(group)
			}
		}
	}
	return n
}

// Detector applies non-maximum suppression along the time axis and keeps the
// top-K surviving peaks per (batch, class, station).
type Detector struct {
	kernel int
	stride int
	topK   int // 0 selects the time-length-adaptive default
}

// NewDetector creates a detector with configuration options.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		kernel: defaultKernel,
		stride: defaultStride,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Detect finds local maxima of scores under the suppression window and
// returns the K highest per (batch, class, station). For tensors with more
// than one channel, channel 0 ("no phase") is excluded from detection.
func (d *Detector) Detect(scores *tensor.Dense4D) (*Result, error) {
	nb, nc, nt, ns := scores.Dims()

	if d.kernel < 1 {
		return nil, fmt.Errorf("%w: kernel %d", ErrBadKernel, d.kernel)
	}
	if d.stride < 1 {
		return nil, fmt.Errorf("%w: stride %d", ErrBadStride, d.stride)
	}
	k := d.topK
	if k == 0 {
		k = adaptiveTopK(nt)
	}
	if k > nt {
		return nil, fmt.Errorf("%w: top-K %d exceeds %d time samples", ErrBadTopK, k, nt)
	}

	// Drop the background channel when phase channels are present.
	firstChan := 0
	if nc > 1 {
		firstChan = 1
	}
	nOut := nc - firstChan

	res := &Result{Groups: make([][][][]Peak, nb)}
	buf := make([]float64, nt)
	for b := 0; b < nb; b++ {
		res.Groups[b] = make([][][]Peak, nOut)
		for c := 0; c < nOut; c++ {
			res.Groups[b][c] = make([][]Peak, ns)
			for s := 0; s < ns; s++ {
				for ti := 0; ti < nt; ti++ {
					buf[ti] = scores.At(b, c+firstChan, ti, s)
				}
				res.Groups[b][c][s] = topKPeaks(suppress(buf, d.kernel, d.stride), k, nt)
			}
		}
	}
	return res, nil
}

// adaptiveTopK computes the default peak cap for a trace of nt samples.
func adaptiveTopK(nt int) int {
	k := int(math.Round(float64(nt) * topKPerSamples))
	if k < topKMinimum {
		k = topKMinimum
	}
	return k
}

// suppress returns the surviving peaks of one trace: every sample whose score
// equals the maximum of its centered window. The window only uses in-range
// neighbors; there is no wraparound or padding value.
func suppress(trace []float64, kernel, stride int) []Peak {
	nt := len(trace)
	pad := kernel / 2

	// windowMax[u] is the maximum over [u*stride-pad, u*stride+pad],
	// clipped to the trace. Computed with a monotonic deque in O(nt).
	nOut := (nt - 1) / stride

	deque := make([]int, 0, kernel) // indices with non-increasing scores
	next := 0                       // next trace index to push

	var survivors []Peak
	for u := 0; u <= nOut; u++ {
		center := u * stride
		lo, hi := center-pad, center+pad
		if lo < 0 {
			lo = 0
		}
		if hi > nt-1 {
			hi = nt - 1
		}
		for ; next <= hi; next++ {
			for len(deque) > 0 && trace[deque[len(deque)-1]] <= trace[next] {
				deque = deque[:len(deque)-1]
			}
			deque = append(deque, next)
		}
		for deque[0] < lo {
			deque = deque[1:]
		}
		// Non-strict comparison: all samples on a flat maximum survive.
		// Zero-score survivors are indistinguishable from suppressed
		// samples and are not peaks.
		if trace[center] > 0 && trace[center] == trace[deque[0]] {
			survivors = append(survivors, Peak{Index: center, Score: trace[center]})
		}
	}
	return survivors
}

// topKPeaks keeps the k highest-scoring survivors. Output order is by score
// descending, not by time; callers sort by index before use. Indices are
// reduced modulo nt to guard any stride-induced index arithmetic.
func topKPeaks(survivors []Peak, k, nt int) []Peak {
	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].Score > survivors[j].Score
	})
	if len(survivors) > k {
		survivors = survivors[:k]
	}
	for i := range survivors {
		survivors[i].Index %= nt
	}
	return survivors
}
