package picks

// Option applies a configuration option to the Extractor.
type Option func(*Extractor)

// WithPhases sets the phase labels, one per detection class. Use a single
// "event" label for whole-event detections.
func WithPhases(phases []string) Option {
	return func(e *Extractor) {
		if len(phases) > 0 {
			e.phases = phases
		}
	}
}

// WithMinScore sets the probability threshold. Picks require a score
// strictly greater than this value.
func WithMinScore(vmin float64) Option {
	return func(e *Extractor) {
		e.minScore = vmin
	}
}

// WithAmpWindows sets the amplitude window lengths in seconds, one per phase.
// A single value is broadcast to all phases.
func WithAmpWindows(windows []float64) Option {
	return func(e *Extractor) {
		if len(windows) > 0 {
			e.ampWindows = windows
		}
	}
}
