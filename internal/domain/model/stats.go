package model

// Stats is a point-in-time snapshot of the extraction service: lifecycle
// state, worker and queue sizing, and journal progress.
type Stats struct {
	Started        bool   `json:"started"`
	WorkerCount    int    `json:"workerCount"`
	QueueSize      int    `json:"queueSize"`
	QueueLength    int    `json:"queueLength"`
	PickDir        string `json:"pickDir"`
	JournaledUnits int    `json:"journaledUnits"`
}
