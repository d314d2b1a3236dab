package orchestrator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/raijin-core/raijin/internal/config"
	"github.com/raijin-core/raijin/internal/curriculum"
	"github.com/raijin-core/raijin/internal/evolution"
	"github.com/raijin-core/raijin/internal/fitness"
	"github.com/raijin-core/raijin/internal/lineage"
	"github.com/raijin-core/raijin/internal/metrics"
	"github.com/raijin-core/raijin/internal/neural"
	"github.com/raijin-core/raijin/internal/resource"
	"github.com/raijin-core/raijin/internal/roleboundary"
	"github.com/raijin-core/raijin/internal/selfheal"
	"github.com/raijin-core/raijin/internal/selftest"
	"github.com/raijin-core/raijin/internal/stress"
	"github.com/raijin-core/raijin/internal/telemetry"
	"github.com/raijin-core/raijin/internal/training"
)

const (
	curriculumTaskInterval       = 5
	worldModelCapacity           = 512
	degradationSnapshotThreshold = 0.05
	degradationStreakForRollback = 3
	ledgerUpdateInterval         = 10
	ledgerPromoteInterval        = 20
	adversarialInterval          = 25
	redTeamInterval              = 20
	throttleSleepFloor           = 0.2
	skipHeavyThrottleFloor       = 0.5
	skipHeavyDegradationFloor    = 2
)

// ErrFatalViolation is returned by Cycle when the role-boundary's
// violation counter is nonzero at cycle exit, per spec.md §4.13 step 21.
var ErrFatalViolation = errors.New("orchestrator: role-boundary violation, stopping evolution")

// Dirs bundles the data-directory layout the orchestrator writes to,
// spec.md §6.
type Dirs struct {
	Root        string
	Checkpoints string
}

// NewDirs derives the standard subdirectory layout under root.
func NewDirs(root string) Dirs {
	return Dirs{Root: root, Checkpoints: filepath.Join(root, "checkpoints")}
}

func (d Dirs) path(name string) string { return filepath.Join(d.Root, name) }

// Orchestrator drives the evolution loop: one Cycle call executes the
// full 21-step sequence from spec.md §4.13, wiring every other
// subsystem together.
type Orchestrator struct {
	dirs Dirs

	boundary  *roleboundary.Boundary
	governor  *resource.Governor
	curri     *curriculum.Curriculum
	substrate *neural.Fabric
	pipeline  *training.Pipeline

	dominance  *metrics.Dominance
	anomaly    *metrics.Anomaly
	regression *metrics.Regression
	ledger     *fitness.Ledger

	tracker    *lineage.Tracker
	versioning *lineage.Versioning

	selfHealing *selfheal.SelfHealing
	harness     *selftest.Harness
	replay      *selftest.Replay

	telemetryLog    *telemetry.Log
	telemetryServer *telemetry.Server
	logger          *telemetry.Logger

	worldModel    *WorldModel
	episodic      *EpisodicMemory
	introspection *Introspection
	runtimeConfig *RuntimeConfig

	adversarial     *stress.Adversarial
	stressFramework *stress.Framework
	redTeam         *stress.RedTeam

	buildHash  string
	configHash string
	seed       uint64

	cycle                  uint64
	consecutiveDegradation int
	lastSnapshotLoss       float64
	lastSnapshotFitness    float64
	hasSnapshot            bool
	prevOracleScore        float64
}

// New wires every subsystem together around a fresh substrate and
// evolution population, writing its persistent state under dirs.Root.
func New(dirs Dirs, substrate *neural.Fabric, evoCfg evolution.Config, fitnessFn evolution.FitnessFunc, pinned config.PinnedDeps) (*Orchestrator, error) {
	if err := os.MkdirAll(dirs.Checkpoints, 0o755); err != nil {
		return nil, err
	}

	population := evolution.New(evoCfg)
	pipeline, err := training.New(substrate, population, fitnessFn)
	if err != nil {
		return nil, err
	}

	tracker := lineage.New(dirs.path("lineage.json"))
	_ = tracker.Load()
	versioning := lineage.NewVersioning(tracker, substrate, dirs.Checkpoints)

	ledger := fitness.New(versioning)
	regression := metrics.NewRegression()
	governor := resource.New()

	selfHealing := selfheal.New(regression, governor, versioning)

	adversarial := stress.NewAdversarial(substrate)
	framework := stress.NewFramework(substrate)
	redTeam := stress.NewRedTeam(substrate, framework, adversarial)

	telemetryLog := telemetry.New(dirs.path("telemetry.json"))
	logger := telemetry.NewLogger(dirs.path("logs"), nil)
	replay := selftest.NewReplay(dirs.path("regression_replay.txt"))
	_ = replay.Load()

	o := &Orchestrator{
		dirs:            dirs,
		boundary:        roleboundary.New(),
		governor:        governor,
		curri:           curriculum.New(),
		substrate:       substrate,
		pipeline:        pipeline,
		dominance:       metrics.NewDominance(),
		anomaly:         metrics.NewAnomaly(),
		regression:      regression,
		ledger:          ledger,
		tracker:         tracker,
		versioning:      versioning,
		selfHealing:     selfHealing,
		replay:          replay,
		telemetryLog:    telemetryLog,
		logger:          logger,
		worldModel:      NewWorldModel(worldModelCapacity),
		episodic:        NewEpisodicMemory(),
		introspection:   NewIntrospection(),
		runtimeConfig:   NewRuntimeConfig(),
		adversarial:     adversarial,
		stressFramework: framework,
		redTeam:         redTeam,
		seed:            config.DefaultRuntimeConfig().Seed,
	}
	o.harness = o.buildHarness()
	o.telemetryServer = telemetry.NewServer(telemetryLog, func() []interface{} {
		entries := tracker.Entries()
		out := make([]interface{}, len(entries))
		for i, e := range entries {
			out[i] = e
		}
		return out
	})

	buildHash, err := config.BuildHash(map[string]interface{}{"module": "raijin"})
	if err == nil {
		o.buildHash = buildHash
	}
	configHash, err := config.ConfigHash(config.DefaultRuntimeConfig(), pinned)
	if err == nil {
		o.configHash = configHash
	}

	return o, nil
}

// CycleCount returns the orchestrator's current cycle counter.
func (o *Orchestrator) CycleCount() uint64 { return o.cycle }

// SelfTestHarness exposes the wired self-test harness for one-shot CLI
// invocations outside the evolution loop.
func (o *Orchestrator) SelfTestHarness() *selftest.Harness { return o.harness }

// Replay exposes the regression-replay store for one-shot CLI
// invocations outside the evolution loop.
func (o *Orchestrator) Replay() *selftest.Replay { return o.replay }

// StartTelemetryServer binds the read-only HTTP/WS status surface to
// addr. It is started at most once and runs outside the
// role-boundary-guarded path.
func (o *Orchestrator) StartTelemetryServer(addr string) {
	o.telemetryServer.Start(addr)
}

// buildHarness wires the twelve standard self-tests to closures bound
// to this orchestrator's live components, spec.md §4.12.
func (o *Orchestrator) buildHarness() *selftest.Harness {
	fns := map[string]selftest.TestFunc{
		"substrate_init": func() (bool, string) {
			if o.substrate == nil {
				return selftest.Fail("no substrate")
			}
			return selftest.Pass()
		},
		"process": func() (bool, string) {
			in := make([]byte, 1000)
			out := make([]byte, 1000)
			if err := o.substrate.Process(in, out); err != nil {
				return selftest.Fail("process: %v", err)
			}
			return selftest.Pass()
		},
		"learn": func() (bool, string) {
			target := make([]byte, 1000)
			if err := o.substrate.Learn(target); err != nil {
				return selftest.Fail("learn: %v", err)
			}
			return selftest.Pass()
		},
		"adversarial_null": func() (bool, string) {
			res := o.adversarial.Inject(stress.ShapeNullInput)
			if res.RobustnessContribution != 1.0 {
				return selftest.Fail("null input was not rejected cleanly")
			}
			return selftest.Pass()
		},
		"extreme_values": func() (bool, string) {
			res := o.stressFramework.Run(stress.PerturbationExtremeValues)
			if !res.Passed {
				return selftest.Fail("extreme values destabilized output")
			}
			return selftest.Pass()
		},
		"recovery_after_failure": func() (bool, string) {
			_ = o.adversarial.Inject(stress.ShapeZeroSize)
			in := make([]byte, 1000)
			out := make([]byte, 1000)
			if err := o.substrate.Process(in, out); err != nil {
				return selftest.Fail("substrate did not recover: %v", err)
			}
			return selftest.Pass()
		},
		"evolution_init": func() (bool, string) {
			if err := o.pipeline.EvolutionStep(); err != nil {
				return selftest.Fail("evolution_step: %v", err)
			}
			return selftest.Pass()
		},
		"training_step": func() (bool, string) {
			if err := o.pipeline.TrainStep(); err != nil {
				return selftest.Fail("train_step: %v", err)
			}
			return selftest.Pass()
		},
		"stress_many_cycles": func() (bool, string) {
			for i := 0; i < 5; i++ {
				res := o.stressFramework.Run(stress.PerturbationID(i % 5))
				if !res.Passed {
					return selftest.Fail("stress cycle %d failed", i)
				}
			}
			return selftest.Pass()
		},
		"role_boundary_assertions": func() (bool, string) {
			if err := o.boundary.Enter("selftest", roleboundary.Raijin); err != nil {
				return selftest.Fail("enter: %v", err)
			}
			ok := o.boundary.AssertRaijin()
			o.boundary.Exit("selftest")
			if !ok {
				return selftest.Fail("assert_raijin failed")
			}
			return selftest.Pass()
		},
		"task_oracle_evaluate": func() (bool, string) {
			out := curriculum.Evaluate(curriculum.Coding, make([]byte, 16), 0.1)
			if !out.Passed {
				return selftest.Fail("task oracle rejected a trivially passing case")
			}
			return selftest.Pass()
		},
		"resource_governor_reset": func() (bool, string) {
			o.governor.ResetThrottle()
			if o.governor.ThrottleFactor() != 1.0 {
				return selftest.Fail("throttle factor did not reset to 1.0")
			}
			return selftest.Pass()
		},
	}
	return selftest.New(selftest.StandardOrder, fns)
}

func skipHeavy(throttleFactor float64, degradationMode int) bool {
	return throttleFactor < skipHeavyThrottleFloor || degradationMode >= skipHeavyDegradationFloor
}

// Cycle runs one full iteration of the evolution loop, spec.md §4.13.
func (o *Orchestrator) Cycle() error {
	o.cycle++
	cycle := o.cycle

	// 1. governor.sample()
	o.governor.Sample()

	// 2. optionally fetch a curriculum task every 5 cycles
	if cycle%curriculumTaskInterval == 0 {
		task := o.curri.NextTask(time.Now().Unix())
		o.pipeline.SetCurriculumTask(training.Task{
			Type:       task.Type,
			Difficulty: task.Difficulty,
			Spec:       task.Spec,
			Timestamp:  task.Timestamp,
		})
	}

	// 3. apply throttling; sleep if deeply throttled; compute skip_heavy
	o.governor.ApplyThrottling()
	throttleFactor := o.governor.ThrottleFactor()
	degradationMode := o.governor.DegradationMode()
	if throttleFactor < throttleSleepFloor {
		time.Sleep(50 * time.Millisecond)
	}
	o.curri.SetDegradationMode(degradationMode)
	heavy := skipHeavy(throttleFactor, degradationMode)

	// 4. role_boundary.enter("raijin", Raijin)
	if err := o.boundary.Enter("raijin", roleboundary.Raijin); err != nil {
		return fmt.Errorf("orchestrator: cycle %d: %w", cycle, err)
	}

	// 5. runtime_config.update(loss, fitness, step)
	lastMetrics := o.pipeline.Metrics()
	o.runtimeConfig.Update(lastMetrics.Loss, lastMetrics.Fitness)

	// 6. decide run_evolution_this_step
	runEvolutionThisStep := cycle%uint64(o.runtimeConfig.EvolutionInterval()) == 0

	// 7. train_step; if flagged, evolution_step
	if err := o.pipeline.TrainStep(); err != nil {
		o.boundary.Exit("raijin")
		return fmt.Errorf("orchestrator: cycle %d: train_step: %w", cycle, err)
	}
	if runEvolutionThisStep {
		if err := o.pipeline.EvolutionStep(); err != nil {
			o.logger.Log(telemetry.Warn, "orchestrator", fmt.Sprintf("evolution_step: %v", err))
		}
	}

	m := o.pipeline.Metrics()

	// 8. evaluate task oracle on the most recent output, update curriculum
	oracleOut := curriculum.Evaluate(curriculum.Coding, o.pipeline.LastOutput(), m.Loss)
	o.curri.UpdateFromPerformance(oracleOut.Score - o.prevOracleScore)
	o.prevOracleScore = oracleOut.Score

	// 9. report training consumption to the governor
	o.governor.ReportConsumption("training", 1.0, 1.0, float64(m.BatchTimeMS))

	// 10. feed latent experience vectors into the world-model buffer
	latent := make([]float32, 8)
	for i := range latent {
		latent[i] = float32(m.Loss) + float32(i)*float32(m.Fitness)
	}
	o.worldModel.Observe(latent)
	if cycle%WorldCompressionBatch == 0 {
		dropped := o.worldModel.Compress()
		if dropped > 0 {
			o.logger.Log(telemetry.Info, "worldmodel", fmt.Sprintf("compressed, dropped %d entries", dropped))
		}
	}

	// 11. degradation streak vs. last long-term snapshot
	if o.hasSnapshot {
		lossWorse := m.Loss > o.lastSnapshotLoss*(1+degradationSnapshotThreshold)
		fitnessWorse := m.Fitness < o.lastSnapshotFitness*(1-degradationSnapshotThreshold)
		if lossWorse && fitnessWorse {
			o.consecutiveDegradation++
		} else {
			o.consecutiveDegradation = 0
		}
		if o.consecutiveDegradation >= degradationStreakForRollback {
			if err := o.substrate.Load(o.dirs.path("neural_checkpoint.bin")); err == nil {
				o.logger.Log(telemetry.Warn, "orchestrator", "consecutive degradation, loaded neural checkpoint")
			}
			o.consecutiveDegradation = 0
		}
	}

	// 12. telemetry: dominance, anomaly, regression; ledger
	dominanceSnap := o.dominance.Update(metrics.Inputs{
		Fitness:    m.Fitness,
		Loss:       m.Loss,
		Entropy:    float64(m.Entropy),
		BatchMS:    float64(m.BatchTimeMS),
		MemMB:      o.governor.LastSample().RAMMB,
		Step:       m.StepCount,
		Generation: m.Generation,
	})
	anomalyEvent := o.anomaly.Update(metrics.Observation{
		Loss:    m.Loss,
		Fitness: m.Fitness,
		Entropy: float64(m.Entropy),
		Latency: float64(m.BatchTimeMS),
		Memory:  o.governor.LastSample().RAMMB,
	})
	if anomalyEvent.Detected {
		o.logger.Log(telemetry.Warn, "metrics", anomalyEvent.Description)
	}
	regressionEvent := o.regression.Update(m.Fitness, m.Loss, dominanceSnap.Dominance)
	if regressionEvent.Fired {
		o.logger.Log(telemetry.Warn, "metrics", fmt.Sprintf("regression detected: kind=%d severity=%.2f", regressionEvent.Kind, regressionEvent.Severity))
		if regressionEvent.DegenerationDetected {
			if err := o.ledger.PromoteBest(); err != nil {
				o.logger.Log(telemetry.Error, "fitness", fmt.Sprintf("demote rollback failed: %v", err))
			}
		}
	}

	var composite fitness.Composite
	if cycle%ledgerUpdateInterval == 0 {
		testPassRate := 1.0
		if len(o.replay.Entries()) > 0 {
			testPassRate = 0.5
		}
		composite = o.ledger.Update(
			testPassRate,
			o.adversarial.RobustnessScore(),
			m.StepCount,
			o.tracker.NextVersionID(),
			fitness.DominanceView{
				Efficiency:   dominanceSnap.Efficiency,
				Coherence:    dominanceSnap.Coherence,
				Adaptability: dominanceSnap.Adaptability,
			},
			fitness.RegressionState{
				Fired:                regressionEvent.Fired,
				DegenerationDetected: regressionEvent.DegenerationDetected,
			},
			o.versioning.RollbackCount(),
		)
	} else {
		composite = o.ledger.Current()
	}
	if cycle%ledgerPromoteInterval == 0 {
		if err := o.ledger.PromoteBest(); err != nil {
			o.logger.Log(telemetry.Error, "fitness", fmt.Sprintf("promote best failed: %v", err))
		}
	}

	snap := telemetry.Snapshot{
		Cycle:           cycle,
		Step:            m.StepCount,
		Generation:      m.Generation,
		Loss:            m.Loss,
		Fitness:         m.Fitness,
		Dominance:       dominanceSnap.Dominance,
		Entropy:         float64(m.Entropy),
		Composite:       composite.Score,
		ThrottleFactor:  throttleFactor,
		DegradationMode: degradationMode,
		Timestamp:       time.Now(),
	}
	_ = o.telemetryLog.Record(snap)
	o.telemetryServer.BroadcastFrame(snap)

	// 13. self_healing.evaluate()
	outcome, err := o.selfHealing.Evaluate(selfheal.RegressionSignal{
		DegenerationDetected: regressionEvent.DegenerationDetected,
		FiredSeverity:        regressionEvent.Severity,
	})
	if err != nil {
		o.logger.Log(telemetry.Error, "selfheal", fmt.Sprintf("evaluate: %v", err))
	}
	if outcome == selfheal.HardRepairApplied {
		o.logger.Log(telemetry.Warn, "selfheal", "hard repair applied")
	}

	// 14. every save_interval cycles: persist long-term memory, episodic
	// embedding, versioned checkpoint, provenance record
	if cycle%uint64(o.runtimeConfig.SaveInterval()) == 0 {
		o.saveSnapshot(m, dominanceSnap, composite)
		o.lastSnapshotLoss = m.Loss
		o.lastSnapshotFitness = m.Fitness
		o.hasSnapshot = true
	}

	// 15. every EPISODIC_CONSOLIDATION_THRESHOLD cycles: consolidate
	if cycle%EpisodicConsolidationThreshold == 0 {
		result := o.episodic.Consolidate()
		o.logger.Log(telemetry.Info, "episodic", fmt.Sprintf("consolidated %d (semantic=%d procedural=%d)", result.Consolidated, result.Semantic, result.Procedural))
	}

	// 16. every 50 cycles: introspection observe+critique
	if cycle%IntrospectionInterval == 0 {
		o.introspection.Observe("dominance", dominanceSnap.Dominance)
		o.introspection.Observe("fitness", m.Fitness)
		for _, flag := range o.introspection.Critique() {
			o.logger.Log(telemetry.Warn, "introspection", fmt.Sprintf("%s regressed %.1f%% vs all-time mean", flag.Component, flag.Regression*100))
		}
	}

	// 17-19. stress/adversarial/red-team, gated on !heavy
	if !heavy {
		if cycle%uint64(o.runtimeConfig.StressInterval()) == 0 {
			kind := stress.PerturbationID(cycle % 5)
			res := o.stressFramework.Run(kind)
			o.dominance.SetLastRobustness(res.Robustness)
		}
		if cycle%adversarialInterval == 0 {
			shape := stress.ShapeID(cycle % 6)
			res := o.adversarial.Inject(shape)
			o.dominance.SetLastRobustness(res.RobustnessContribution)
		}
		if cycle%redTeamInterval == 0 {
			attack := o.redTeam.NextAttack()
			if attack.InducedFailure {
				o.logger.Log(telemetry.Warn, "redteam", fmt.Sprintf("attack %s induced failure: %s", attack.Attack, attack.Hint))
			}
		}
	}

	// 20. every self_test_interval cycles: run_all, soft repair + replay
	if cycle%uint64(o.runtimeConfig.SelfTestInterval()) == 0 {
		report := o.harness.RunAll()
		if !report.AllPassed() {
			o.selfHealing.SoftRepair()
			_ = o.replay.AddFailures(report)
		}
		_, allPassed := o.replay.ReplayAll(o.harness)
		if !allPassed && o.replay.EscalateToHardRepair() {
			if err := o.selfHealing.HardRepair(); err != nil {
				o.logger.Log(telemetry.Error, "selfheal", fmt.Sprintf("hard repair after replay escalation: %v", err))
			}
		}
	}

	// 21. role_boundary.exit("raijin"); fatal on violation
	o.boundary.Exit("raijin")
	if o.boundary.ViolationCount() > 0 {
		return ErrFatalViolation
	}
	return nil
}

func (o *Orchestrator) saveSnapshot(m training.Metrics, dominanceSnap metrics.Snapshot, composite fitness.Composite) {
	mem := telemetry.LongTermMemory{
		ConsciousnessLevel:  composite.Score,
		EvolutionGeneration: m.Generation,
		TrainingStepCount:   m.StepCount,
		Loss:                m.Loss,
		Fitness:             m.Fitness,
		Entropy:             float64(m.Entropy),
	}
	if err := telemetry.SaveLongTermMemory(o.dirs.path("raijin_state.json"), mem); err != nil {
		o.logger.Log(telemetry.Error, "telemetry", fmt.Sprintf("save long-term memory: %v", err))
	}

	o.episodic.Record(Episode{
		Timestamp: time.Now().Unix(),
		Step:      int(m.StepCount),
		Utility:   composite.Score,
		Tags:      []string{"sem:snapshot", "proc:save_interval"},
	})

	if err := o.substrate.Save(o.dirs.path("neural_checkpoint.bin")); err != nil {
		o.logger.Log(telemetry.Error, "neural", fmt.Sprintf("save checkpoint: %v", err))
	}

	if _, err := o.versioning.CreateCheckpoint(m.StepCount, m.Generation, m.Loss, m.Fitness, dominanceSnap.Dominance); err != nil {
		o.logger.Log(telemetry.Error, "lineage", fmt.Sprintf("create checkpoint: %v", err))
	}

	if err := telemetry.AppendProvenance(o.dirs.path("provenance.log"), time.Now().UnixMilli(), o.seed, o.buildHash, o.configHash); err != nil {
		o.logger.Log(telemetry.Error, "telemetry", fmt.Sprintf("append provenance: %v", err))
	}
}

// Close stops the telemetry server (if started) and releases the
// orchestrator's open file handles.
func (o *Orchestrator) Close() error {
	_ = o.telemetryServer.Stop()
	return o.logger.Close()
}
