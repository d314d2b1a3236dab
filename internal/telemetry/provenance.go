package telemetry

import (
	"bufio"
	"fmt"
	"os"
)

// AppendProvenance appends one line to provenance.log: "<ms> <seed>
// <build_hash> <config_hash>", per spec.md §6.
func AppendProvenance(path string, ms int64, seed uint64, buildHash, configHash string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if _, err := fmt.Fprintf(w, "%d %d %s %s\n", ms, seed, buildHash, configHash); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return file.Sync()
}
