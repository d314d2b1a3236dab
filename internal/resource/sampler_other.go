//go:build !linux

package resource

import "time"

// portableSampler is the fallback used on non-linux builds. It still
// reports RAM via runtime.MemStats (always available) but leaves
// CPU/disk at zero rather than guessing at a platform-specific API —
// consistent with spec.md §9's stance that undeclared fields should
// stay zero rather than be faked.
type portableSampler struct{}

func newPlatformSampler() Sampler {
	return &portableSampler{}
}

func (portableSampler) Sample() (Sample, error) {
	return Sample{
		CPUPercent: 0,
		RAMMB:      readRAMMB(),
		DiskMB:     0,
		LatencyMS:  0,
		Timestamp:  time.Now(),
	}, nil
}
