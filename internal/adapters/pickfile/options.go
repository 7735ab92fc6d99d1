package pickfile

// Option applies a configuration option to the Writer.
type Option func(*Writer)

// WithMode selects the output discipline: seismic-network or DAS.
func WithMode(mode Mode) Option {
	return func(w *Writer) {
		if mode == ModeSeismic || mode == ModeDAS {
			w.mode = mode
		}
	}
}
