// Package pickfile writes per-unit-of-work pick files.
//
// Each unit of work yields exactly one CSV file, sorted by the mode's key.
// A unit with zero picks still produces an empty file so downstream merge
// and tracking can distinguish "processed, no picks" from "not yet
// processed". Workers own disjoint files; no locking is needed.
package pickfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/quakeflow/picker/internal/domain/picks"
	"github.com/quakeflow/picker/pkg/metrics"
)

// Mode selects the row key and columns of the output files.
type Mode string

const (
	// ModeSeismic sorts rows by phase_index and writes station_id.
	ModeSeismic Mode = "seismic"
	// ModeDAS sorts rows by (channel_index, phase_index) and writes
	// channel_index in place of station_id.
	ModeDAS Mode = "das"
)

// Writer persists pick lists as CSV files under one directory.
type Writer struct {
	dir  string
	mode Mode
}

// NewWriter creates a writer for the given directory.
func NewWriter(dir string, opts ...Option) *Writer {
	w := &Writer{
		dir:  dir,
		mode: ModeSeismic,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write persists the picks of one unit of work and returns the file path.
// Slashes in the unit identifier are flattened so nested source paths map to
// one file name.
func (w *Writer) Write(ctx context.Context, unitID string, pp []picks.Pick) (string, error) {
	// DAS files key rows by numeric channel index. Refuse the unit rather
	// than silently collapsing unparseable ids onto channel 0.
	if w.mode == ModeDAS {
		for i := range pp {
			if _, err := strconv.Atoi(pp[i].StationID); err != nil {
				return "", fmt.Errorf("%w: station id %q", ErrBadChannelID, pp[i].StationID)
			}
		}
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteFile, err)
	}
	path := filepath.Join(w.dir, strings.ReplaceAll(unitID, "/", "_")+".csv")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteFile, err)
	}
	defer f.Close()

	// Empty marker file for a unit with no picks.
	if len(pp) == 0 {
		metrics.RecordPickFileWritten()
		return path, nil
	}

	rows := make([]picks.Pick, len(pp))
	copy(rows, pp)
	w.sortRows(rows)

	cw := csv.NewWriter(f)
	if err := cw.Write(w.header(rows)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteFile, err)
	}
	for i := range rows {
		if err := cw.Write(w.record(&rows[i])); err != nil {
			return "", fmt.Errorf("%w: %v", ErrWriteFile, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteFile, err)
	}
	metrics.RecordPickFileWritten()
	return path, nil
}

// sortRows orders rows by the mode's key.
func (w *Writer) sortRows(rows []picks.Pick) {
	switch w.mode {
	case ModeDAS:
		sort.SliceStable(rows, func(i, j int) bool {
			ci, cj := channelIndex(rows[i].StationID), channelIndex(rows[j].StationID)
			if ci != cj {
				return ci < cj
			}
			return rows[i].PhaseIndex < rows[j].PhaseIndex
		})
	default:
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].PhaseIndex < rows[j].PhaseIndex
		})
	}
}

// header returns the column names. Optional columns appear only when the
// corresponding input was supplied during extraction.
func (w *Writer) header(rows []picks.Pick) []string {
	first := "station_id"
	if w.mode == ModeDAS {
		first = "channel_index"
	}
	cols := []string{first, "phase_index", "phase_time", "phase_score", "phase_type"}
	if w.mode == ModeDAS {
		return cols
	}
	if rows[0].PhasePolarity != "" {
		cols = append(cols, "phase_polarity")
	}
	if rows[0].PhaseAmplitude != "" {
		cols = append(cols, "phase_amplitude")
	}
	return cols
}

// record renders one pick as a CSV row matching header.
func (w *Writer) record(p *picks.Pick) []string {
	first := p.StationID
	if w.mode == ModeDAS {
		first = strconv.Itoa(channelIndex(p.StationID))
	}
	rec := []string{first, strconv.Itoa(p.PhaseIndex), p.PhaseTime, p.PhaseScore, p.PhaseType}
	if w.mode == ModeDAS {
		return rec
	}
	if p.PhasePolarity != "" {
		rec = append(rec, p.PhasePolarity)
	}
	if p.PhaseAmplitude != "" {
		rec = append(rec, p.PhaseAmplitude)
	}
	return rec
}

// channelIndex parses a numeric station identifier. Write validates DAS
// ids before rows reach here; the fallback only keeps the sort total.
func channelIndex(stationID string) int {
	n, err := strconv.Atoi(stationID)
	if err != nil {
		return 0
	}
	return n
}
