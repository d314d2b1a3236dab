package lineage

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Substrate is the narrow surface versioning needs from the neural
// fabric: save/load of its checkpoint format.
type Substrate interface {
	Save(path string) error
	Load(path string) error
}

// ErrNoLineage is returned by RollbackToBest when no lineage entry
// exists yet.
var ErrNoLineage = errors.New("lineage: no entries to roll back to")

// Versioning ties a Tracker to a substrate, creating version-tagged
// checkpoints and restoring the substrate from a chosen version.
type Versioning struct {
	tracker   *Tracker
	substrate Substrate
	dir       string

	rollbackCount uint64
	group         singleflight.Group
}

// NewVersioning constructs a versioning controller writing checkpoint
// files under dir.
func NewVersioning(tracker *Tracker, substrate Substrate, dir string) *Versioning {
	return &Versioning{tracker: tracker, substrate: substrate, dir: dir}
}

func checkpointPath(dir string, version uint64) string {
	return filepath.Join(dir, fmt.Sprintf("checkpoint_v%d.bin", version))
}

// CreateCheckpoint writes the substrate's current state to
// <dir>/checkpoint_v<N>.bin and records the corresponding lineage entry.
func (v *Versioning) CreateCheckpoint(step, generation uint64, loss, fitness, dominance float64) (Entry, error) {
	path := checkpointPath(v.dir, v.tracker.NextVersionID())
	if err := v.substrate.Save(path); err != nil {
		return Entry{}, err
	}
	return v.tracker.Record(step, generation, loss, fitness, dominance, path)
}

// RollbackToVersion loads the checkpoint file associated with the given
// lineage version id into the substrate.
func (v *Versioning) RollbackToVersion(id uint64) error {
	e, ok := v.tracker.ByVersion(id)
	if !ok {
		return fmt.Errorf("lineage: version %d not found", id)
	}
	if err := v.substrate.Load(e.CheckpointPath); err != nil {
		return err
	}
	atomic.AddUint64(&v.rollbackCount, 1)
	return nil
}

// RollbackToBest finds the highest-fitness lineage entry and restores
// the substrate to it. Concurrent calls collapse onto a single checkpoint
// load via singleflight, since they would otherwise all load the same
// file redundantly.
func (v *Versioning) RollbackToBest() error {
	_, err, _ := v.group.Do("rollback_to_best", func() (interface{}, error) {
		best, ok := v.tracker.Best()
		if !ok {
			return nil, ErrNoLineage
		}
		if err := v.substrate.Load(best.CheckpointPath); err != nil {
			return nil, err
		}
		atomic.AddUint64(&v.rollbackCount, 1)
		return nil, nil
	})
	return err
}

// RollbackCount returns the total number of successful rollbacks.
func (v *Versioning) RollbackCount() uint64 {
	return atomic.LoadUint64(&v.rollbackCount)
}
