//go:build linux

package resource

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// linuxSampler reads /proc/stat for CPU deltas, runtime.MemStats for RAM
// (the process's own footprint stands in for the substrate's RAM
// pressure, the quantity the governor actually needs to budget), and
// unix.Statfs for disk usage of the data directory.
type linuxSampler struct {
	mu        sync.Mutex
	dataDir   string
	prevIdle  uint64
	prevTotal uint64
	haveProc  bool
}

func newPlatformSampler() Sampler {
	return &linuxSampler{dataDir: "data"}
}

func (s *linuxSampler) Sample() (Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cpuPct := s.readCPUPercent()
	ramMB := readRAMMB()
	diskMB := s.readDiskMB()

	return Sample{
		CPUPercent: cpuPct,
		RAMMB:      ramMB,
		DiskMB:     diskMB,
		LatencyMS:  0,
		Timestamp:  time.Now(),
	}, nil
}

func (s *linuxSampler) readCPUPercent() float64 {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return 0
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return 0
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) < 5 || fields[0] != "cpu" {
		return 0
	}

	var total, idle uint64
	for i, field := range fields[1:] {
		v, convErr := strconv.ParseUint(field, 10, 64)
		if convErr != nil {
			continue
		}
		total += v
		if i == 3 { // idle column
			idle = v
		}
	}

	if !s.haveProc {
		s.prevIdle, s.prevTotal = idle, total
		s.haveProc = true
		return 0
	}

	deltaTotal := total - s.prevTotal
	deltaIdle := idle - s.prevIdle
	s.prevIdle, s.prevTotal = idle, total

	if deltaTotal == 0 {
		return 0
	}
	return 100.0 * float64(deltaTotal-deltaIdle) / float64(deltaTotal)
}

func (s *linuxSampler) readDiskMB() float64 {
	var stat unix.Statfs_t
	path := s.dataDir
	if path == "" {
		path = "."
	}
	if _, err := os.Stat(path); err != nil {
		path = "."
	}
	if err := unix.Statfs(path, &stat); err != nil {
		return 0
	}
	usedBlocks := stat.Blocks - stat.Bfree
	usedBytes := usedBlocks * uint64(stat.Bsize)
	return float64(usedBytes) / (1024 * 1024)
}
