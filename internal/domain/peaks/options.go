// Package peaks implements windowed non-maximum suppression and top-K
// selection over phase score tensors.
package peaks

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithKernel sets the suppression window length. The one-sided radius is
// kernel/2 (integer floor), so odd kernels center symmetrically.
func WithKernel(kernel int) Option {
	return func(d *Detector) {
		d.kernel = kernel
	}
}

// WithStride sets the suppression evaluation stride along the time axis.
func WithStride(stride int) Option {
	return func(d *Detector) {
		d.stride = stride
	}
}

// WithTopK sets the number of peaks kept per (batch, class, station).
// Zero selects the adaptive default max(round(nt*10/3000), 3).
func WithTopK(k int) Option {
	return func(d *Detector) {
		if k >= 0 {
			d.topK = k
		}
	}
}
