package picks_test

import (
	"testing"

	"github.com/quakeflow/picker/internal/domain/peaks"
	"github.com/quakeflow/picker/internal/domain/picks"
	"github.com/quakeflow/picker/internal/domain/tensor"
	. "github.com/smartystreets/goconvey/convey"
)

// result builds a single-batch detection result from per-class, per-station
// peak groups.
func result(groups [][][]peaks.Peak) *peaks.Result {
	return &peaks.Result{Groups: [][][][]peaks.Peak{groups}}
}

func TestExtractThreshold(t *testing.T) {
	Convey("Given peaks straddling the probability threshold", t, func() {
		res := result([][][]peaks.Peak{{{
			{Index: 10, Score: 0.500},
			{Index: 50, Score: 0.501},
			{Index: 90, Score: 0.499},
		}}})
		e := picks.NewExtractor(picks.WithMinScore(0.5))

		Convey("When extracting", func() {
			out, err := e.Extract(res, picks.Metadata{})
			So(err, ShouldBeNil)

			Convey("Then only scores strictly above the threshold survive", func() {
				So(len(out), ShouldEqual, 1)
				So(len(out[0]), ShouldEqual, 1)
				So(out[0][0].PhaseIndex, ShouldEqual, 50)
				So(out[0][0].PhaseScore, ShouldEqual, "0.501")
			})
		})
	})
}

func TestExtractOrdering(t *testing.T) {
	Convey("Given unsorted peaks in one group", t, func() {
		res := result([][][]peaks.Peak{{{
			{Index: 200, Score: 0.9},
			{Index: 50, Score: 0.8},
			{Index: 120, Score: 0.7},
		}}})
		e := picks.NewExtractor()

		Convey("When extracting", func() {
			out, err := e.Extract(res, picks.Metadata{})
			So(err, ShouldBeNil)

			Convey("Then picks appear in ascending time order within the group", func() {
				So(len(out[0]), ShouldEqual, 3)
				So(out[0][0].PhaseIndex, ShouldEqual, 50)
				So(out[0][1].PhaseIndex, ShouldEqual, 120)
				So(out[0][2].PhaseIndex, ShouldEqual, 200)
			})
		})
	})
}

func TestExtractDefaults(t *testing.T) {
	Convey("Given no optional metadata", t, func() {
		res := result([][][]peaks.Peak{{{{Index: 150, Score: 0.9}}}})
		e := picks.NewExtractor()

		Convey("When extracting", func() {
			out, err := e.Extract(res, picks.Metadata{})
			So(err, ShouldBeNil)
			p := out[0][0]

			Convey("Then the anchor defaults to the epoch", func() {
				// 150 samples at the default 0.01 s/sample.
				So(p.PhaseTime, ShouldEqual, "1970-01-01T00:00:01.500")
			})

			Convey("Then the station id defaults to the zero-padded index", func() {
				So(p.StationID, ShouldEqual, "0000")
			})

			Convey("Then optional fields are absent", func() {
				So(p.PhasePolarity, ShouldEqual, "")
				So(p.PhaseAmplitude, ShouldEqual, "")
			})
		})

		Convey("When an empty begin time is supplied", func() {
			out, err := e.Extract(res, picks.Metadata{BeginTimes: []string{""}})
			So(err, ShouldBeNil)
			So(out[0][0].PhaseTime, ShouldEqual, "1970-01-01T00:00:01.500")
		})
	})
}

func TestExtractOffsets(t *testing.T) {
	Convey("Given patch offsets", t, func() {
		res := result([][][]peaks.Peak{{{{Index: 40, Score: 0.9}}}})
		e := picks.NewExtractor()
		meta := picks.Metadata{
			BeginTimeIndex:    []int{3000},
			BeginChannelIndex: []int{512},
		}

		Convey("When extracting", func() {
			out, err := e.Extract(res, meta)
			So(err, ShouldBeNil)
			p := out[0][0]

			Convey("Then the phase index includes the time offset", func() {
				So(p.PhaseIndex, ShouldEqual, 3040)
			})

			Convey("Then the default station id includes the channel offset", func() {
				So(p.StationID, ShouldEqual, "0512")
			})

			Convey("Then the pick time does NOT include the patch offset", func() {
				So(p.PhaseTime, ShouldEqual, "1970-01-01T00:00:00.400")
			})
		})
	})
}

func TestExtractStationIDsAndTrailingZ(t *testing.T) {
	Convey("Given explicit station ids and a zoned begin time", t, func() {
		res := result([][][]peaks.Peak{{
			{{Index: 10, Score: 0.9}},
			{{Index: 20, Score: 0.8}},
		}})
		e := picks.NewExtractor(picks.WithPhases([]string{"P"}))
		meta := picks.Metadata{
			BeginTimes: []string{"2023-06-15T12:00:00.000Z"},
			StationIDs: [][]string{{"NC.KCT..HHZ"}, {"NC.KRP..HHZ"}},
		}

		Convey("When extracting", func() {
			out, err := e.Extract(res, meta)
			So(err, ShouldBeNil)

			Convey("Then station ids come from the metadata", func() {
				So(out[0][0].StationID, ShouldEqual, "NC.KCT..HHZ")
				So(out[0][1].StationID, ShouldEqual, "NC.KRP..HHZ")
			})

			Convey("Then the trailing Z is stripped before parsing", func() {
				So(out[0][0].PhaseTime, ShouldEqual, "2023-06-15T12:00:00.100")
			})
		})
	})
}

func TestExtractPerBatchInterval(t *testing.T) {
	Convey("Given a per-batch sample interval", t, func() {
		res := &peaks.Result{Groups: [][][][]peaks.Peak{
			{{{{Index: 100, Score: 0.9}}}},
			{{{{Index: 100, Score: 0.9}}}},
		}}
		e := picks.NewExtractor()
		meta := picks.Metadata{SampleInterval: picks.PerBatch([]float64{0.01, 0.02})}

		Convey("When extracting", func() {
			out, err := e.Extract(res, meta)
			So(err, ShouldBeNil)
			So(out[0][0].PhaseTime, ShouldEqual, "1970-01-01T00:00:01.000")
			So(out[1][0].PhaseTime, ShouldEqual, "1970-01-01T00:00:02.000")
		})

		Convey("When the per-batch length does not match", func() {
			_, err := e.Extract(res, picks.Metadata{SampleInterval: picks.PerBatch([]float64{0.01})})
			So(err, ShouldWrap, picks.ErrMetadataLength)
		})
	})
}

func TestExtractPolarity(t *testing.T) {
	Convey("Given a polarity score tensor", t, func() {
		res := result([][][]peaks.Peak{{{{Index: 25, Score: 0.9}}}})
		polarity, err := tensor.NewDense4D(1, 1, 100, 1)
		So(err, ShouldBeNil)
		polarity.Set(0, 0, 25, 0, -0.8204)

		e := picks.NewExtractor()

		Convey("When extracting", func() {
			out, err := e.Extract(res, picks.Metadata{Polarity: polarity})
			So(err, ShouldBeNil)

			Convey("Then the pick carries the polarity at its index", func() {
				So(out[0][0].PhasePolarity, ShouldEqual, "-0.820")
			})
		})
	})
}

func TestExtractAmplitudeWindow(t *testing.T) {
	Convey("Given two peaks 8 samples apart and a 10-sample nominal window", t, func() {
		res := result([][][]peaks.Peak{{{
			{Index: 100, Score: 0.9},
			{Index: 108, Score: 0.8},
		}}})

		waveform, err := tensor.NewDense4D(1, 1, 300, 1)
		So(err, ShouldBeNil)
		waveform.Set(0, 0, 103, 0, 2.0)
		// Inside the first peak's nominal window but past the second peak.
		waveform.Set(0, 0, 109, 0, -5.0)

		// window_amp/dt = 0.1/0.01 = 10 samples.
		e := picks.NewExtractor(
			picks.WithPhases([]string{"P"}),
			picks.WithAmpWindows([]float64{0.1}),
		)
		meta := picks.Metadata{Waveform: waveform, SampleInterval: picks.Scalar(0.01)}

		Convey("When extracting", func() {
			out, err := e.Extract(res, meta)
			So(err, ShouldBeNil)
			So(len(out[0]), ShouldEqual, 2)

			Convey("Then the earlier window is truncated at the next peak", func() {
				// [100, 108): sees 2.0 but not the 5.0 at 109.
				So(out[0][0].PhaseAmplitude, ShouldEqual, "2.000e+00")
			})

			Convey("Then the last peak gets the full nominal window", func() {
				// [108, 118): sees the 5.0 at 109 (absolute value).
				So(out[0][1].PhaseAmplitude, ShouldEqual, "5.000e+00")
			})
		})
	})
}

func TestExtractErrors(t *testing.T) {
	Convey("Given malformed inputs", t, func() {
		res := result([][][]peaks.Peak{{{{Index: 10, Score: 0.9}}}})
		e := picks.NewExtractor()

		Convey("When the anchor timestamp cannot be parsed", func() {
			_, err := e.Extract(res, picks.Metadata{BeginTimes: []string{"not-a-time"}})
			So(err, ShouldWrap, picks.ErrBadTimestamp)
		})

		Convey("When a metadata array has the wrong length", func() {
			_, err := e.Extract(res, picks.Metadata{FileNames: []string{"a", "b"}})
			So(err, ShouldWrap, picks.ErrMetadataLength)
		})

		Convey("When there are more classes than phase labels", func() {
			two := result([][][]peaks.Peak{
				{{{Index: 10, Score: 0.9}}},
				{{{Index: 20, Score: 0.9}}},
			})
			one := picks.NewExtractor(picks.WithPhases([]string{"P"}))
			_, err := one.Extract(two, picks.Metadata{})
			So(err, ShouldWrap, picks.ErrPhaseCount)
		})

		Convey("When the sample interval is non-positive", func() {
			_, err := e.Extract(res, picks.Metadata{SampleInterval: picks.Scalar(0)})
			So(err, ShouldWrap, picks.ErrBadInterval)
		})
	})
}

func TestExtractEndToEnd(t *testing.T) {
	Convey("Given a unit impulse in the P channel of a two-channel tensor", t, func() {
		scores, err := tensor.NewDense4D(1, 2, 300, 1)
		So(err, ShouldBeNil)
		scores.Set(0, 1, 150, 0, 0.95)

		detector := peaks.NewDetector(peaks.WithKernel(21))
		extractor := picks.NewExtractor(picks.WithMinScore(0.5))
		meta := picks.Metadata{
			BeginTimes:     []string{"2024-01-01T00:00:00.000"},
			SampleInterval: picks.Scalar(0.01),
		}

		Convey("When running detection and extraction", func() {
			res, err := detector.Detect(scores)
			So(err, ShouldBeNil)
			out, err := extractor.Extract(res, meta)
			So(err, ShouldBeNil)

			Convey("Then exactly one P pick is produced", func() {
				So(len(out), ShouldEqual, 1)
				So(len(out[0]), ShouldEqual, 1)
				p := out[0][0]
				So(p.PhaseIndex, ShouldEqual, 150)
				So(p.PhaseTime, ShouldEqual, "2024-01-01T00:00:01.500")
				So(p.PhaseScore, ShouldEqual, "0.950")
				So(p.PhaseType, ShouldEqual, "P")
			})
		})
	})
}
