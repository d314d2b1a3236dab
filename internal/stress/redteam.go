package stress

import (
	"github.com/google/uuid"

	"github.com/raijin-core/raijin/internal/curriculum"
)

// AttackID identifies one of the eight red-team attacks, spec.md §4.10:
// the five stress perturbations, one adversarial-shape probe, and the
// two verifier-style attacks.
type AttackID int

const (
	AttackStressCorruption AttackID = iota
	AttackStressNoise
	AttackStressExtreme
	AttackStressZero
	AttackStressAdversarialPerturbation
	AttackAdversarialShapeProbe
	AttackCriticDemandVerify
	AttackProverCheckExec
	attackCount
)

func (a AttackID) String() string {
	switch a {
	case AttackStressCorruption:
		return "stress_corruption"
	case AttackStressNoise:
		return "stress_noise"
	case AttackStressExtreme:
		return "stress_extreme"
	case AttackStressZero:
		return "stress_zero"
	case AttackStressAdversarialPerturbation:
		return "stress_adversarial_perturbation"
	case AttackAdversarialShapeProbe:
		return "adversarial_shape_probe"
	case AttackCriticDemandVerify:
		return "critic_demand_verify"
	case AttackProverCheckExec:
		return "prover_check_exec"
	default:
		return "unknown"
	}
}

// proverFixedLoss is the fixed loss the prover attack evaluates the task
// oracle against, per spec.md §4.10.
const proverFixedLoss = 0.2

// AttackResult is one red-team attack's outcome.
type AttackResult struct {
	ID                     uuid.UUID
	Attack                 AttackID
	InducedFailure         bool
	VerificationPassed     bool
	Hint                   string
	RobustnessContribution float64
}

// RedTeam alternates among the eight attack types, delegating to the
// stress framework and adversarial suite for six of them and running
// two verifier-style probes itself.
type RedTeam struct {
	substrate   Substrate
	framework   *Framework
	adversarial *Adversarial

	cursor int
}

// NewRedTeam constructs a red-team driver around the given substrate,
// stress framework, and adversarial suite.
func NewRedTeam(substrate Substrate, framework *Framework, adversarial *Adversarial) *RedTeam {
	return &RedTeam{substrate: substrate, framework: framework, adversarial: adversarial}
}

// NextAttack runs the next attack in the eight-way rotation.
func (r *RedTeam) NextAttack() AttackResult {
	attack := AttackID(r.cursor % int(attackCount))
	r.cursor++
	return r.RunAttack(attack)
}

// RunAttack runs a specific attack type.
func (r *RedTeam) RunAttack(attack AttackID) AttackResult {
	res := AttackResult{ID: uuid.New(), Attack: attack}

	switch attack {
	case AttackStressCorruption, AttackStressNoise, AttackStressExtreme, AttackStressZero, AttackStressAdversarialPerturbation:
		kind := stressKindFor(attack)
		out := r.framework.Run(kind)
		res.InducedFailure = !out.Passed
		res.VerificationPassed = out.Passed
		res.RobustnessContribution = out.Robustness
		if !out.Passed {
			res.Hint = "stress perturbation " + kind.String() + " destabilized output"
		}

	case AttackAdversarialShapeProbe:
		shape := ShapeID(r.cursor % int(shapeCount))
		out := r.adversarial.Inject(shape)
		res.InducedFailure = out.RobustnessContribution == 0
		res.VerificationPassed = !res.InducedFailure
		res.RobustnessContribution = out.RobustnessContribution
		if res.InducedFailure {
			res.Hint = "adversarial shape " + shape.String() + " broke substrate"
		}

	case AttackCriticDemandVerify:
		res = r.criticDemandVerify()

	default: // AttackProverCheckExec
		res = r.proverCheckExec()
	}

	res.ID = uuid.New()
	res.Attack = attack
	return res
}

// criticDemandVerify drives the substrate with a fixed probe and runs
// the task-oracle property check on the output; any violation is a
// failure.
func (r *RedTeam) criticDemandVerify() AttackResult {
	probe := make([]byte, probeWidth)
	for i := range probe {
		probe[i] = byte((i * 37) % 256)
	}
	output := make([]byte, probeWidth)

	res := AttackResult{Attack: AttackCriticDemandVerify}
	if err := r.substrate.Process(probe, output); err != nil {
		res.InducedFailure = true
		res.Hint = "critic probe failed to process"
		return res
	}

	violations := curriculum.PropertyCheck(output)
	if violations > 0 {
		res.InducedFailure = true
		res.Hint = "critic probe output violated property check"
	} else {
		res.VerificationPassed = true
		res.RobustnessContribution = 1.0
	}
	return res
}

// proverCheckExec runs a full task-oracle evaluation with a fixed loss;
// any non-passing result is a failure.
func (r *RedTeam) proverCheckExec() AttackResult {
	probe := make([]byte, probeWidth)
	for i := range probe {
		probe[i] = byte((i * 53) % 256)
	}
	output := make([]byte, probeWidth)

	res := AttackResult{Attack: AttackProverCheckExec}
	if err := r.substrate.Process(probe, output); err != nil {
		res.InducedFailure = true
		res.Hint = "prover probe failed to process"
		return res
	}

	outcome := curriculum.Evaluate(curriculum.Coding, output, proverFixedLoss)
	if !outcome.Passed {
		res.InducedFailure = true
		res.Hint = "prover task-oracle evaluation did not pass"
	} else {
		res.VerificationPassed = true
		res.RobustnessContribution = 1.0
	}
	return res
}

func stressKindFor(attack AttackID) PerturbationID {
	switch attack {
	case AttackStressCorruption:
		return PerturbationCorruption
	case AttackStressNoise:
		return PerturbationNoiseInjection
	case AttackStressExtreme:
		return PerturbationExtremeValues
	case AttackStressZero:
		return PerturbationZeroInput
	default:
		return PerturbationAdversarial
	}
}
