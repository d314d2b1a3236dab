package selftest

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReplayEntry is one persisted (test_name, signature) pair, spec.md §6.
type ReplayEntry struct {
	Name      string
	Signature string
}

// Replay is the persistent flat file of previously-failing tests,
// spec.md §4.12: data/regression_replay.txt, one
// "test_name\tsignature\n" per entry, deduplicated by name.
type Replay struct {
	path    string
	entries []ReplayEntry

	consecutiveReplayFailures int
}

// NewReplay constructs a replay file handle at path.
func NewReplay(path string) *Replay {
	return &Replay{path: path}
}

// Entries returns a copy of the currently loaded entries.
func (r *Replay) Entries() []ReplayEntry {
	out := make([]ReplayEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Load reads the replay file. A missing file yields an empty list;
// lines without a tab separator (such as a last line cut off before
// its tab) are silently skipped.
func (r *Replay) Load() error {
	file, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.entries = nil
			return nil
		}
		return err
	}
	defer file.Close()

	var entries []ReplayEntry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			continue
		}
		entries = append(entries, ReplayEntry{Name: parts[0], Signature: parts[1]})
	}
	r.entries = entries
	return nil
}

func (r *Replay) save() error {
	file, err := os.Create(r.path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, e := range r.entries {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", e.Name, e.Signature); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return file.Sync()
}

// AddFailures records every failed result from a report, deduplicated
// by test name, and persists the updated file.
func (r *Replay) AddFailures(report Report) error {
	seen := make(map[string]bool, len(r.entries))
	for _, e := range r.entries {
		seen[e.Name] = true
	}
	changed := false
	for _, res := range report.Results {
		if res.Passed || seen[res.Name] {
			continue
		}
		r.entries = append(r.entries, ReplayEntry{Name: res.Name, Signature: res.Message})
		seen[res.Name] = true
		changed = true
	}
	if !changed {
		return nil
	}
	return r.save()
}

// ReplayAll runs every stored entry through the given harness and
// returns whether all of them passed. Consecutive batches with at least
// one failure are counted for EscalateToHardRepair.
func (r *Replay) ReplayAll(h *Harness) (Report, bool) {
	report := Report{Results: make([]Result, 0, len(r.entries))}
	for _, e := range r.entries {
		report.Results = append(report.Results, h.RunOne(e.Name))
	}

	if len(report.Results) == 0 {
		r.consecutiveReplayFailures = 0
		return report, true
	}

	if report.AllPassed() {
		r.consecutiveReplayFailures = 0
	} else {
		r.consecutiveReplayFailures++
	}

	return report, report.AllPassed()
}

// EscalateToHardRepair reports whether the last two consecutive replay
// batches each had at least one failing entry (spec.md §4.12's
// escalation rule).
func (r *Replay) EscalateToHardRepair() bool {
	return r.consecutiveReplayFailures >= 2
}
