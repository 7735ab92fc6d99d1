package merge_test

import (
	"fmt"
	"testing"

	"github.com/quakeflow/picker/internal/domain/merge"
	. "github.com/smartystreets/goconvey/convey"
)

const header = "channel_index,phase_index,phase_time,phase_score,phase_type"

// patch builds a partial file with n data rows for one event patch.
func patch(name string, n int) merge.File {
	lines := []string{header}
	for i := 0; i < n; i++ {
		lines = append(lines, fmt.Sprintf("%d,%d,1970-01-01T00:00:00.000,0.900,P", i, i*10))
	}
	return merge.File{Name: name, Lines: lines}
}

func TestGroupedMerge(t *testing.T) {
	Convey("Given partial files from two events", t, func() {
		files := []merge.File{
			patch("ev1_0_0.csv", 7),
			patch("ev1_0_1024.csv", 6),
			patch("ev2_0_0.csv", 4),
			patch("ev2_0_1024.csv", 3),
		}

		Convey("When merging with a minimum of 10 picks", func() {
			m := merge.NewMerger(merge.WithMinPicks(10))
			outputs := m.Grouped(files)

			Convey("Then ev1 (13 rows) is kept and ev2 (7 rows) is dropped", func() {
				So(len(outputs), ShouldEqual, 1)
				So(outputs[0].Name, ShouldEqual, "ev1.csv")
				So(len(outputs[0].Lines), ShouldEqual, 14) // header + 13 rows
				So(outputs[0].Lines[0], ShouldEqual, header)
			})

			Convey("Then the diagnostic row count covers dropped groups too", func() {
				So(m.Rows(), ShouldEqual, 20)
			})
		})
	})
}

func TestGroupedMergeMinimumBoundary(t *testing.T) {
	Convey("Given a group with exactly the minimum number of picks", t, func() {
		m := merge.NewMerger(merge.WithMinPicks(10))
		outputs := m.Grouped([]merge.File{patch("ev_a_b.csv", 10)})

		Convey("Then the group is dropped", func() {
			So(len(outputs), ShouldEqual, 0)
		})
	})

	Convey("Given a group with one pick more than the minimum", t, func() {
		m := merge.NewMerger(merge.WithMinPicks(10))
		outputs := m.Grouped([]merge.File{patch("ev_a_b.csv", 11)})

		Convey("Then the group is kept", func() {
			So(len(outputs), ShouldEqual, 1)
			So(len(outputs[0].Lines), ShouldEqual, 12)
		})
	})
}

func TestGroupedMergeHeaderSelection(t *testing.T) {
	Convey("Given empty and header-only partials before the first data file", t, func() {
		files := []merge.File{
			{Name: "ev_0_a.csv", Lines: nil},          // missing / zero-byte shard
			{Name: "ev_0_b.csv", Lines: []string{header}}, // processed, no picks
			patch("ev_0_c.csv", 12),
		}
		m := merge.NewMerger(merge.WithMinPicks(10))

		Convey("When merging", func() {
			outputs := m.Grouped(files)

			Convey("Then exactly one header survives and empty shards add nothing", func() {
				So(len(outputs), ShouldEqual, 1)
				So(len(outputs[0].Lines), ShouldEqual, 13)
				So(outputs[0].Lines[0], ShouldEqual, header)
				for _, l := range outputs[0].Lines[1:] {
					So(l, ShouldNotEqual, header)
				}
			})
		})
	})
}

func TestGroupedMergeIdempotence(t *testing.T) {
	Convey("Given a merged output", t, func() {
		files := []merge.File{
			patch("ev_0_0.csv", 8),
			patch("ev_0_1.csv", 7),
		}
		first := merge.NewMerger(merge.WithMinPicks(10)).Grouped(files)
		So(len(first), ShouldEqual, 1)

		Convey("When re-merging the single merged file", func() {
			again := merge.NewMerger(merge.WithMinPicks(10)).Grouped([]merge.File{
				{Name: first[0].Name, Lines: first[0].Lines},
			})

			Convey("Then the content is identical", func() {
				So(len(again), ShouldEqual, 1)
				So(again[0].Name, ShouldEqual, first[0].Name)
				So(again[0].Lines, ShouldResemble, first[0].Lines)
			})
		})
	})
}

func TestFlatMerge(t *testing.T) {
	Convey("Given time-ordered patches of one continuous recording", t, func() {
		files := []merge.File{
			patch("rec_000.csv", 2),
			patch("rec_001.csv", 0), // processed, no picks
			patch("rec_002.csv", 3),
		}
		m := merge.NewMerger()

		Convey("When flat-merging", func() {
			out := m.Flat("picks_das/", files)

			Convey("Then the output is named after the directory", func() {
				So(out.Name, ShouldEqual, "picks_das.csv")
			})

			Convey("Then one header precedes all data rows", func() {
				So(len(out.Lines), ShouldEqual, 6)
				So(out.Lines[0], ShouldEqual, header)
			})

			Convey("Then the diagnostic row count matches", func() {
				So(m.Rows(), ShouldEqual, 5)
			})
		})

		Convey("When every file is empty", func() {
			out := m.Flat("picks_das", []merge.File{{Name: "a.csv"}, {Name: "b.csv"}})

			Convey("Then the output has no lines and no rows are counted", func() {
				So(len(out.Lines), ShouldEqual, 0)
			})
		})
	})
}

func TestFlatMergeOrderPreserved(t *testing.T) {
	Convey("Given files presented out of name order", t, func() {
		f1 := merge.File{Name: "b.csv", Lines: []string{header, "1,10,t,0.9,P"}}
		f2 := merge.File{Name: "a.csv", Lines: []string{header, "0,5,t,0.8,S"}}
		m := merge.NewMerger()

		Convey("When flat-merging", func() {
			out := m.Flat("dir", []merge.File{f1, f2})

			Convey("Then rows follow lexicographic file order", func() {
				So(out.Lines[1], ShouldEqual, "0,5,t,0.8,S")
				So(out.Lines[2], ShouldEqual, "1,10,t,0.9,P")
			})
		})
	})
}
