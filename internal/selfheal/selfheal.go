// Package selfheal implements the self-healing policy from spec.md
// §4.11: hard repair (rollback to best), driven by the regression
// detector's state, and soft repair (reset detectors, unthrottle), run
// on the caller's request.
package selfheal

// RegressionSignal is the narrow view of the regression detector's
// state self-healing needs.
type RegressionSignal struct {
	DegenerationDetected bool
	FiredSeverity        float64
}

const hardRepairSeverityThreshold = 0.7

// RegressionResetter resets the regression detector's current flags.
type RegressionResetter interface {
	Reset()
}

// ThrottleResetter restores the governor's throttle control scalars.
type ThrottleResetter interface {
	ResetThrottle()
}

// Rollback restores the substrate to its best-known lineage entry.
type Rollback interface {
	RollbackToBest() error
}

// SelfHealing polls the regression signal at the end of each cycle and
// applies hard repair or nothing per spec.md §4.11's priority order;
// SoftRepair is never chosen by Evaluate and runs only when the caller
// invokes it directly.
type SelfHealing struct {
	regression RegressionResetter
	governor   ThrottleResetter
	rollback   Rollback

	healingCount  uint64
	rollbackCount uint64
}

// New constructs a self-healing policy. governor may be nil if the
// caller never wires a resettable governor (SoftRepair becomes a no-op
// for the throttle side in that case).
func New(regression RegressionResetter, governor ThrottleResetter, rollback Rollback) *SelfHealing {
	return &SelfHealing{regression: regression, governor: governor, rollback: rollback}
}

// Outcome describes what Evaluate did.
type Outcome int

const (
	NoAction Outcome = iota
	SoftRepairApplied
	HardRepairApplied
)

// Evaluate implements spec.md §4.11's priority order:
//  1. degeneration detected -> HardRepair
//  2. a fresh regression event with severity >= 0.7 -> HardRepair
//  3. otherwise no action
func (s *SelfHealing) Evaluate(sig RegressionSignal) (Outcome, error) {
	if sig.DegenerationDetected {
		if err := s.HardRepair(); err != nil {
			return NoAction, err
		}
		return HardRepairApplied, nil
	}
	if sig.FiredSeverity >= hardRepairSeverityThreshold {
		if err := s.HardRepair(); err != nil {
			return NoAction, err
		}
		return HardRepairApplied, nil
	}
	return NoAction, nil
}

// SoftRepair increments the healing counter and resets the regression
// detector and (if present) the governor's throttle state.
func (s *SelfHealing) SoftRepair() {
	s.healingCount++
	if s.regression != nil {
		s.regression.Reset()
	}
	if s.governor != nil {
		s.governor.ResetThrottle()
	}
}

// HardRepair increments the healing and rollback counters and rolls
// back to the best-known lineage entry; on success it also resets the
// regression detector.
func (s *SelfHealing) HardRepair() error {
	s.healingCount++
	s.rollbackCount++
	if s.rollback == nil {
		return nil
	}
	if err := s.rollback.RollbackToBest(); err != nil {
		return err
	}
	if s.regression != nil {
		s.regression.Reset()
	}
	return nil
}

// HealingCount returns the total number of soft+hard repairs applied.
func (s *SelfHealing) HealingCount() uint64 { return s.healingCount }

// RollbackCount returns the total number of rollbacks this policy has
// triggered.
func (s *SelfHealing) RollbackCount() uint64 { return s.rollbackCount }
