package main

import (
	"fmt"
	"io"

	"github.com/Readm/axilite_sim/simulator"
)

// PrintSummary writes the end-of-run report.
func PrintSummary(w io.Writer, res simulator.Result) {
	s := res.Summary
	fmt.Fprintln(w, "=== Scoreboard ===")
	fmt.Fprintf(w, "Test: %s\n", res.Test)
	fmt.Fprintf(w, "Seed: %d\n", res.Seed)
	fmt.Fprintf(w, "Writes: %d\n", s.Writes)
	fmt.Fprintf(w, "Reads: %d\n", s.Reads)
	fmt.Fprintf(w, "Errors: %d\n", s.Errors)
	if s.Mismatches > 0 {
		fmt.Fprintf(w, "Data Mismatches: %d\n", s.Mismatches)
	}
	if s.Disagreements > 0 {
		fmt.Fprintf(w, "Driver/Monitor Disagreements: %d\n", s.Disagreements)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Bus ===")
	fmt.Fprintf(w, "Cycles: %d\n", res.Cycles)
	fmt.Fprintf(w, "Stored Words: %d\n", res.StoredWords)
	fmt.Fprintf(w, "Driven: %d, Observed: %d, Aborted: %d\n", len(res.Driven), res.Observed, res.Aborted)
	st := res.Slave
	fmt.Fprintf(w, "Slave: Writes=%d, Reads=%d, AddrOverwrites=%d, ReadOverwrites=%d, DroppedData=%d\n",
		st.Writes, st.Reads, st.AddrOverwrites, st.ReadOverwrites, st.DroppedData)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Result: %s\n", verdict(res.Outcome))
}

func verdict(o simulator.Outcome) string {
	switch o {
	case simulator.OutcomePass:
		return "PASS"
	case simulator.OutcomeTimeout:
		return "TIMEOUT"
	default:
		return "FAIL"
	}
}
