// Package picks materializes surviving peaks into timestamped pick records.
package picks

// Pick is one detected arrival. String fields carry their serialized form:
// scores and polarities with fixed 3-decimal formatting, amplitudes in
// scientific notation, times at millisecond precision. A Pick is immutable
// once created.
type Pick struct {
	// StationID identifies the station or, for spatial data, the channel.
	StationID string `json:"station_id"`

	// PhaseIndex is the absolute sample index of the arrival, including any
	// externally supplied patch offset.
	PhaseIndex int `json:"phase_index"`

	// PhaseTime is the arrival timestamp, ISO-8601 with milliseconds.
	PhaseTime string `json:"phase_time"`

	// PhaseScore is the detection probability, e.g. "0.950".
	PhaseScore string `json:"phase_score"`

	// PhaseType is the phase label, e.g. "P", "S", or "event".
	PhaseType string `json:"phase_type"`

	// PhasePolarity is the signed first-motion score, e.g. "-0.820".
	// Empty when no polarity tensor was supplied.
	PhasePolarity string `json:"phase_polarity,omitempty"`

	// PhaseAmplitude is the maximum absolute waveform amplitude in a bounded
	// window after the pick, e.g. "1.234e-05". Empty when no waveform was
	// supplied.
	PhaseAmplitude string `json:"phase_amplitude,omitempty"`
}
