// Package pickdir discovers partial pick files on disk and runs merges over
// them. It is the filesystem-facing collaborator of the merge domain: all
// grouping/concatenation policy lives in internal/domain/merge.
package pickdir

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/quakeflow/picker/internal/domain/merge"
	"github.com/quakeflow/picker/pkg/logger"
	"github.com/quakeflow/picker/pkg/metrics"
)

// Patch files carry at least event id, channel offset and time offset in
// their name; plain per-trace files are a single token.
const groupedPattern = "*_*_*.csv"

// MergeGrouped merges event patches under inDir into one file per event id
// in outDir. Returns the number of data rows seen across the run.
func MergeGrouped(ctx context.Context, inDir, outDir string, opts ...merge.Option) (int, error) {
	files, err := loadFiles(ctx, inDir, groupedPattern)
	if err != nil {
		return 0, err
	}

	m := merge.NewMerger(opts...)
	outputs := m.Grouped(files)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMergeIO, err)
	}
	for _, out := range outputs {
		if err := writeLines(filepath.Join(outDir, out.Name), out.Lines); err != nil {
			return 0, err
		}
		metrics.RecordMergeGroup()
	}
	for i := 0; i < m.Dropped(); i++ {
		metrics.RecordMergeGroupDropped()
	}
	metrics.RecordMergeRows(m.Rows())

	logger.Get().Info(ctx, "grouped merge complete",
		logger.String("in_dir", inDir),
		logger.String("out_dir", outDir),
		logger.Int("groups_written", len(outputs)),
		logger.Int("groups_dropped", m.Dropped()),
		logger.Int("rows", m.Rows()),
	)
	return m.Rows(), nil
}

// MergeFlat concatenates every pick file under dir into "<dir>.csv" placed
// next to the directory. Returns the number of data rows merged.
func MergeFlat(ctx context.Context, dir string) (int, error) {
	files, err := loadFiles(ctx, dir, "*.csv")
	if err != nil {
		return 0, err
	}

	m := merge.NewMerger()
	out := m.Flat(filepath.Base(strings.TrimRight(dir, "/")), files)

	target := filepath.Join(filepath.Dir(strings.TrimRight(dir, "/")), out.Name)
	if err := writeLines(target, out.Lines); err != nil {
		return 0, err
	}
	metrics.RecordMergeRows(m.Rows())

	logger.Get().Info(ctx, "flat merge complete",
		logger.String("dir", dir),
		logger.String("output", target),
		logger.Int("rows", m.Rows()),
	)
	return m.Rows(), nil
}

// loadFiles reads every matching file into memory, sorted by name. A file
// that disappears between listing and reading is treated as zero picks, not
// an error; one worker's missing shard must not abort the merge.
func loadFiles(ctx context.Context, dir, pattern string) ([]merge.File, error) {
	names, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMergeIO, err)
	}
	sort.Strings(names)

	files := make([]merge.File, 0, len(names))
	for _, name := range names {
		lines, err := readLines(name)
		if err != nil {
			logger.Get().Warn(ctx, "skipping unreadable pick file",
				logger.String("file", name), logger.Error(err))
			lines = nil
		}
		files = append(files, merge.File{Name: filepath.Base(name), Lines: lines})
	}
	return files, nil
}

// readLines reads a file's lines without trailing newlines.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// writeLines writes lines to path, newline-terminated.
func writeLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMergeIO, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("%w: %v", ErrMergeIO, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrMergeIO, err)
	}
	return nil
}
