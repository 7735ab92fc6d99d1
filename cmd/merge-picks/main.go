// Command merge-picks combines partial pick files produced by parallel
// extraction runs.
//
// Grouped mode collects patches named <event>_<shard>_<patch>.csv into one
// file per event, dropping events with too few picks. Flat mode concatenates
// every pick file under a directory into a single <dir>.csv next to it.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/quakeflow/picker/internal/adapters/pickdir"
	"github.com/quakeflow/picker/internal/domain/merge"
	"github.com/quakeflow/picker/pkg/logger"
)

func main() {
	var (
		inDir    = flag.String("in", "results/picks_raw", "directory holding partial pick files")
		outDir   = flag.String("out", "results/picks_merged", "output directory for grouped merges")
		mode     = flag.String("mode", "grouped", "merge discipline: grouped or flat")
		minPicks = flag.Int("min-picks", 10, "minimum combined pick count to keep a group")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	log := logger.Get().Named("merge-picks")

	var (
		rows int
		err  error
	)
	switch *mode {
	case "grouped":
		rows, err = pickdir.MergeGrouped(ctx, *inDir, *outDir, merge.WithMinPicks(*minPicks))
	case "flat":
		rows, err = pickdir.MergeFlat(ctx, *inDir)
	default:
		os.Stderr.WriteString("unknown mode: " + *mode + "\n")
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Error(ctx, "merge failed", logger.Error(err))
		os.Exit(1)
	}

	log.Info(ctx, "merge complete",
		logger.String("mode", *mode),
		logger.Int("rows", rows),
	)
}
