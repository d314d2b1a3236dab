// Package lineage implements the append-only lineage log and the
// checkpoint-backed versioning/rollback subsystem from spec.md §4.8.
package lineage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"time"
)

// magic is the lineage file's 17-byte header magic, spec.md §6. Despite
// the "lineage.json" filename (kept for drop-in filesystem-layout
// compatibility — see SPEC_FULL.md §7), this is a binary format.
const magic = "RAIJIN_LINEAGE_V1"

const maxEntries = 1024

// Entry is one lineage record, spec.md §3.
type Entry struct {
	VersionID      uint64
	Step           uint64
	Generation     uint64
	Loss           float64
	Fitness        float64
	Dominance      float64
	Timestamp      time.Time
	CheckpointPath string
}

// Tracker is an append-only ring of up to maxEntries lineage records,
// persisted as a fixed header plus fixed-size records.
type Tracker struct {
	path          string
	entries       []Entry
	nextVersionID uint64
}

// New constructs an empty tracker writing to path.
func New(path string) *Tracker {
	return &Tracker{path: path, nextVersionID: 1}
}

// Entries returns a copy of every retained lineage entry, oldest first.
func (t *Tracker) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// NextVersionID returns the version id the next Record call will assign.
func (t *Tracker) NextVersionID() uint64 { return t.nextVersionID }

// Record assigns a new monotonically increasing version id, appends the
// entry (evicting the oldest once at capacity), and persists the whole
// log to disk.
func (t *Tracker) Record(step, generation uint64, loss, fitness, dominance float64, checkpointPath string) (Entry, error) {
	e := Entry{
		VersionID:      t.nextVersionID,
		Step:           step,
		Generation:     generation,
		Loss:           loss,
		Fitness:        fitness,
		Dominance:      dominance,
		Timestamp:      time.Now(),
		CheckpointPath: checkpointPath,
	}
	t.nextVersionID++

	t.entries = append(t.entries, e)
	if len(t.entries) > maxEntries {
		t.entries = t.entries[len(t.entries)-maxEntries:]
	}

	if err := t.save(); err != nil {
		return e, err
	}
	return e, nil
}

// Best returns the entry with the highest fitness among all retained
// entries, and whether any entry exists.
func (t *Tracker) Best() (Entry, bool) {
	if len(t.entries) == 0 {
		return Entry{}, false
	}
	best := t.entries[0]
	for _, e := range t.entries[1:] {
		if e.Fitness > best.Fitness {
			best = e
		}
	}
	return best, true
}

// ByVersion finds the entry with the given version id.
func (t *Tracker) ByVersion(id uint64) (Entry, bool) {
	for _, e := range t.entries {
		if e.VersionID == id {
			return e, true
		}
	}
	return Entry{}, false
}

const recordSize = 8 + 8 + 8 + 8 + 8 + 8 + 8 + 256 // versionID,step,gen,loss,fitness,dominance,timestamp(unix nanos),path(fixed 256 bytes)

func (t *Tracker) save() error {
	file, err := os.Create(t.path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if _, err := w.WriteString(magic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(t.entries))); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, t.nextVersionID); err != nil {
		return err
	}
	for _, e := range t.entries {
		if err := writeEntry(w, e); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return file.Sync()
}

func writeEntry(w io.Writer, e Entry) error {
	if err := binary.Write(w, binary.LittleEndian, e.VersionID); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.Step); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.Generation); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.Loss); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.Fitness); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.Dominance); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.Timestamp.UnixNano()); err != nil {
		return err
	}
	var pathBuf [256]byte
	copy(pathBuf[:], e.CheckpointPath)
	_, err := w.Write(pathBuf[:])
	return err
}

func readEntry(r io.Reader) (Entry, error) {
	var e Entry
	var tsNanos int64

	fields := []interface{}{
		&e.VersionID, &e.Step, &e.Generation, &e.Loss, &e.Fitness, &e.Dominance, &tsNanos,
	}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return e, err
		}
	}
	e.Timestamp = time.Unix(0, tsNanos)

	var pathBuf [256]byte
	if _, err := io.ReadFull(r, pathBuf[:]); err != nil {
		return e, err
	}
	n := 0
	for n < len(pathBuf) && pathBuf[n] != 0 {
		n++
	}
	e.CheckpointPath = string(pathBuf[:n])
	return e, nil
}

// Load reads a lineage file written by save. A bad or short header
// yields an empty history rather than an error, per spec.md §4.8's
// best-effort startup semantics; a short read inside the records keeps
// the entries parsed before it and drops the truncated tail.
func (t *Tracker) Load() error {
	file, err := os.Open(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return nil
	}
	defer file.Close()

	r := bufio.NewReader(file)

	magicBuf := make([]byte, len(magic))
	if _, err := io.ReadFull(r, magicBuf); err != nil || string(magicBuf) != magic {
		t.entries = nil
		t.nextVersionID = 1
		return nil
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		t.entries = nil
		t.nextVersionID = 1
		return nil
	}
	var nextVersionID uint64
	if err := binary.Read(r, binary.LittleEndian, &nextVersionID); err != nil {
		t.entries = nil
		t.nextVersionID = 1
		return nil
	}

	entries := make([]Entry, 0, count)
	for i := uint32(0); i < count; i++ {
		e, err := readEntry(r)
		if err != nil {
			// Truncated tail record: keep what parsed so far.
			break
		}
		entries = append(entries, e)
	}

	t.entries = entries
	t.nextVersionID = nextVersionID
	if t.nextVersionID == 0 && len(entries) > 0 {
		max := entries[0].VersionID
		for _, e := range entries[1:] {
			if e.VersionID > max {
				max = e.VersionID
			}
		}
		t.nextVersionID = max + 1
	}
	return nil
}
