package merge

// Option applies a configuration option to the Merger.
type Option func(*Merger)

// WithMinPicks sets the minimum combined data row count for a grouped merge.
// A group is kept only when it has strictly more rows than this.
func WithMinPicks(n int) Option {
	return func(m *Merger) {
		if n >= 0 {
			m.minPicks = n
		}
	}
}
