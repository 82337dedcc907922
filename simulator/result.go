package simulator

import (
	"github.com/Readm/axilite_sim/core"
	"github.com/Readm/axilite_sim/scoreboard"
	"github.com/Readm/axilite_sim/slave"
)

// Outcome is the verdict of one run.
type Outcome string

const (
	OutcomePass    Outcome = "pass"
	OutcomeFail    Outcome = "fail"
	OutcomeTimeout Outcome = "timeout"
)

// ExitCode maps the outcome to a process exit status.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomePass:
		return 0
	case OutcomeTimeout:
		return 2
	default:
		return 1
	}
}

// Result collects everything a run produced.
type Result struct {
	Test    string
	Seed    int64
	Outcome Outcome
	Summary scoreboard.Summary

	// Driven holds the driver's own view of every completed item.
	Driven   []core.Transaction
	Observed int
	Aborted  int
	Cycles   int
	Slave    slave.Stats

	// StoredWords is the number of addresses the slave memory holds.
	StoredWords int
}
