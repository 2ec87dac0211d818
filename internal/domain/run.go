package domain

type RunStatus string

const (
	RunStatusCompleted    RunStatus = "completed"
	RunStatusBelowMinimum RunStatus = "below_minimum"
	RunStatusFailed       RunStatus = "failed"
)
