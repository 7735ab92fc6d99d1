// Package merge combines partial pick files written by independent workers
// into canonical per-group outputs.
//
// The core is deliberately filesystem-free: it consumes (name, lines) pairs
// in filename-sorted order and produces merged line sets. Directory
// discovery and file I/O live in the pickdir adapter.
package merge

import (
	"sort"
	"strings"
)

// Default merger configuration constants.
const (
	defaultMinPicks = 10
)

// File is one partial pick file: its base name and raw lines, header
// included. A missing or zero-byte partial is represented by empty Lines and
// contributes nothing.
type File struct {
	Name  string
	Lines []string
}

// Output is one merged file.
type Output struct {
	Name  string
	Lines []string
}

// Merger concatenates and de-duplicates partial pick files.
type Merger struct {
	minPicks int
	// rows counts data rows seen across the run, dropped groups included.
	// Diagnostic only; not part of the file contract.
	rows    int
	dropped int
}

// NewMerger creates a merger with configuration options.
func NewMerger(opts ...Option) *Merger {
	m := &Merger{
		minPicks: defaultMinPicks,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Rows returns the total number of data rows seen across all merges.
func (m *Merger) Rows() int { return m.rows }

// Dropped returns the number of groups dropped below the minimum pick count.
func (m *Merger) Dropped() int { return m.dropped }

// Grouped merges files sharing a leading identifier token (the first
// `_`-separated component of the file stem, one physical event split into
// patches). Each group keeps exactly one header, taken from the first
// non-empty file in filename-sorted order. Groups whose combined data row
// count is not above the minimum are dropped. Outputs are named
// "<identifier>.csv" and returned sorted by name.
func (m *Merger) Grouped(files []File) []Output {
	groups := make(map[string][]File)
	for _, f := range files {
		key := strings.SplitN(stem(f.Name), "_", 2)[0]
		groups[key] = append(groups[key], f)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var outputs []Output
	for _, key := range keys {
		lines, dataRows := m.concat(groups[key])
		m.rows += dataRows
		if dataRows <= m.minPicks {
			m.dropped++
			continue
		}
		outputs = append(outputs, Output{Name: key + ".csv", Lines: lines})
	}
	return outputs
}

// Flat merges all files of one continuous recording into a single output
// named after the containing directory. No minimum applies: a recording with
// few picks is still a valid recording.
func (m *Merger) Flat(dirName string, files []File) Output {
	lines, dataRows := m.concat(files)
	m.rows += dataRows
	return Output{Name: strings.TrimSuffix(dirName, "/") + ".csv", Lines: lines}
}

// concat joins files in filename-sorted order: one header from the first
// non-empty file, then every file's data rows in encounter order. Per-file
// row order is preserved; rows are never re-sorted.
func (m *Merger) concat(files []File) (lines []string, dataRows int) {
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	haveHeader := false
	for _, f := range files {
		if len(f.Lines) == 0 {
			continue
		}
		if !haveHeader {
			lines = append(lines, f.Lines[0])
			haveHeader = true
		}
		lines = append(lines, f.Lines[1:]...)
		dataRows += len(f.Lines) - 1
	}
	return lines, dataRows
}

// stem strips the extension from a file name.
func stem(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i]
	}
	return name
}
