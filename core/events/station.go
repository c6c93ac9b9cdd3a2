package events

// StationTrained is published for each station that produced a model.
type StationTrained struct {
	StationID string
	ModelID   string
	Family    string
	Rows      int
}

// StationSkipped is published when a station is dropped from a run.
// Stage is "train" or "forecast".
type StationSkipped struct {
	StationID string
	Stage     string
	Err       error
}
