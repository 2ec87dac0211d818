package domain

type ActionKind string

const (
	ActionPublish ActionKind = "publish"
	ActionUpdate  ActionKind = "update"
	ActionRetire  ActionKind = "retire"
)

type OutcomeStatus string

const (
	OutcomeOK       OutcomeStatus = "ok"
	OutcomeError    OutcomeStatus = "error"
	OutcomeLost     OutcomeStatus = "lost" // message vanished from the channel; republish next run
	OutcomeDeferred OutcomeStatus = "deferred"
)
